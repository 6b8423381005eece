package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Helpdesk event names that carry a contact
const (
	HelpdeskEventContactCreated = "contact_created"
	HelpdeskEventContactUpdated = "contact_updated"
)

// WebhookOutcome tells the caller which acknowledgement to send
type WebhookOutcome string

const (
	WebhookIgnored       WebhookOutcome = "ignored"
	WebhookNoIdentifiers WebhookOutcome = "no_identifiers"
	WebhookPhoneRequired WebhookOutcome = "phone_required"
	WebhookSynced        WebhookOutcome = "synced"
)

// HelpdeskWebhookService applies helpdesk contact events to the CRM. The
// helpdesk is the origin here, so nothing is mirrored back.
type HelpdeskWebhookService struct {
	db          *gorm.DB
	contactRepo *repository.ContactRepository
	resolver    *ContactResolver
	logger      *zap.Logger
}

func NewHelpdeskWebhookService(
	db *gorm.DB,
	contactRepo *repository.ContactRepository,
	resolver *ContactResolver,
	logger *zap.Logger,
) *HelpdeskWebhookService {
	return &HelpdeskWebhookService{
		db:          db,
		contactRepo: contactRepo,
		resolver:    resolver,
		logger:      logger,
	}
}

// HandleEvent upserts the event's contact through the resolver
func (s *HelpdeskWebhookService) HandleEvent(ctx context.Context, req *domain.HelpdeskWebhookRequest) (WebhookOutcome, error) {
	if req.Event != HelpdeskEventContactCreated && req.Event != HelpdeskEventContactUpdated {
		return WebhookIgnored, nil
	}

	in := ResolveInput{
		Phone: req.Data.PhoneNumber,
		Email: req.Data.Email,
		Name:  req.Data.Name,
		Type:  domain.ContactTypeIndividual,
	}
	if strings.TrimSpace(in.Phone) == "" && strings.TrimSpace(in.Email) == "" {
		return WebhookNoIdentifiers, nil
	}

	var res *Resolution
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.contactRepo.WithTx(tx)

		existing, _, _, err := s.resolver.Lookup(ctx, store, in)
		if err != nil {
			return err
		}
		if existing == nil && s.resolver.RequirePhone() && strings.TrimSpace(in.Phone) == "" {
			return ErrMissingRequiredPhone
		}

		res, err = s.resolver.ResolveOrCreate(ctx, store, in)
		return err
	})
	if errors.Is(err, ErrMissingRequiredPhone) {
		return WebhookPhoneRequired, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to apply helpdesk contact: %w", err)
	}

	s.logger.Info("Helpdesk contact synced to CRM",
		zap.String("event", req.Event),
		zap.String("contact_id", res.Contact.ID.String()),
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("changed", res.Changed),
	)
	return WebhookSynced, nil
}
