package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/events"
	"github.com/tork-crm/tork-api/internal/logger"
	"github.com/tork-crm/tork-api/internal/metrics"
	"github.com/tork-crm/tork-api/internal/notify"
	"github.com/tork-crm/tork-api/internal/repository"
	"github.com/tork-crm/tork-api/internal/storage"
	"github.com/tork-crm/tork-api/internal/syncer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLeadTitlePrefix = "Seguro"
	leadHistoryNote        = "Lead recebido"
	afterCommitTimeout     = 30 * time.Second
)

var leadValidate = validator.New()

// ContactSyncer mirrors a contact into the helpdesk without blocking
type ContactSyncer interface {
	SyncContactAsync(ctx context.Context, req syncer.SyncRequest)
}

// LeadInput is one inbound lead
type LeadInput struct {
	Name           string
	Phone          string
	Email          string
	InsuranceType  string
	Summary        *string
	Extras         json.RawMessage
	EstimatedValue json.RawMessage
	// RawPayload is archived as received when set
	RawPayload []byte
}

// LeadInputFromRequest maps the webhook body
func LeadInputFromRequest(req *domain.LeadRequest, raw []byte) LeadInput {
	return LeadInput{
		Name:           req.Nome,
		Phone:          req.Telefone,
		Email:          req.Email,
		InsuranceType:  req.TipoSeguro,
		Summary:        req.Resumo,
		Extras:         req.DadosExtras,
		EstimatedValue: req.ValorEstimado,
		RawPayload:     raw,
	}
}

// LeadResult identifies what a committed lead produced
type LeadResult struct {
	ContactID          uuid.UUID
	DealID             uuid.UUID
	Outcome            ResolutionOutcome
	PotentialDuplicate bool
}

type LeadService struct {
	db          *gorm.DB
	contactRepo *repository.ContactRepository
	dealRepo    *repository.DealRepository
	historyRepo *repository.DealStageHistoryRepository
	stageRepo   *repository.PipelineStageRepository
	resolver    *ContactResolver
	syncer      ContactSyncer
	publisher   events.Publisher
	notifier    notify.Notifier
	archive     storage.LeadArchiver
	fallback    string
	logger      *zap.Logger

	background sync.WaitGroup
}

func NewLeadService(
	db *gorm.DB,
	contactRepo *repository.ContactRepository,
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	stageRepo *repository.PipelineStageRepository,
	resolver *ContactResolver,
	contactSyncer ContactSyncer,
	publisher events.Publisher,
	notifier notify.Notifier,
	archive storage.LeadArchiver,
	initialStage string,
	logger *zap.Logger,
) *LeadService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if archive == nil {
		archive = storage.NoopArchive{}
	}
	return &LeadService{
		db:          db,
		contactRepo: contactRepo,
		dealRepo:    dealRepo,
		historyRepo: historyRepo,
		stageRepo:   stageRepo,
		resolver:    resolver,
		syncer:      contactSyncer,
		publisher:   publisher,
		notifier:    notifier,
		archive:     archive,
		fallback:    initialStage,
		logger:      logger,
	}
}

// IngestLead resolves the contact and creates its deal in one transaction.
// Follow-up work (helpdesk mirror, event, e-mail, archive) starts after the
// commit and cannot change the result.
func (s *LeadService) IngestLead(ctx context.Context, in LeadInput) (*LeadResult, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		metrics.RecordLead("rejected")
		return nil, ErrMissingPhone
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = DefaultContactName
	}

	email, err := ParseLeadEmail(in.Email)
	if err != nil {
		s.logger.Debug("Dropping lead e-mail", zap.Error(err))
	}

	value, err := ParseEstimatedValue(in.EstimatedValue)
	if err != nil {
		s.logger.Debug("Dropping estimated value", zap.Error(err))
	}
	renewal, err := ParseRenewalDate(in.Extras)
	if err != nil {
		s.logger.Debug("Dropping renewal date", zap.Error(err))
	}

	deal := &domain.Deal{
		Title:         leadTitle(in.Summary, in.InsuranceType, name),
		Value:         value,
		InsuranceType: NormalizeInsuranceType(in.InsuranceType),
		Priority:      domain.DealPriorityHigh,
		InsuranceData: insuranceData(in.Extras),
		RenewalDate:   renewal,
		Status:        domain.DealStatusActive,
	}
	changedByID, changedByName := auth.Actor(ctx)

	var resolution *Resolution
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.resolver.ResolveOrCreate(ctx, s.contactRepo.WithTx(tx), ResolveInput{
			Phone: phone,
			Email: email,
			Name:  name,
			Type:  domain.ContactTypeIndividual,
		})
		if err != nil {
			return err
		}
		resolution = res

		stage, err := s.initialStage(ctx, tx)
		if err != nil {
			return err
		}
		deal.ContactID = res.Contact.ID
		deal.Stage = stage

		if err := s.dealRepo.WithTx(tx).Create(ctx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}

		return s.historyRepo.WithTx(tx).Create(ctx, &domain.DealStageHistory{
			DealID:        deal.ID,
			ToStage:       stage,
			ChangedByID:   changedByID,
			ChangedByName: changedByName,
			Notes:         leadHistoryNote,
			ChangedAt:     time.Now().UTC(),
		})
	})
	if err != nil {
		metrics.RecordLead("failed")
		if errors.Is(err, ErrMissingIdentityKey) || errors.Is(err, ErrMissingRequiredPhone) {
			return nil, err
		}
		s.logger.Error("Lead transaction rolled back",
			zap.String("phone", logger.MaskPhone(phone)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}

	metrics.RecordLead("ingested")
	s.logger.Info("Lead ingested",
		zap.String("deal_id", deal.ID.String()),
		zap.String("contact_id", resolution.Contact.ID.String()),
		zap.String("outcome", string(resolution.Outcome)),
		zap.Bool("potential_duplicate", resolution.PotentialDuplicate),
	)

	deal.Contact = resolution.Contact
	s.afterCommit(ctx, deal, resolution, in.RawPayload)

	return &LeadResult{
		ContactID:          resolution.Contact.ID,
		DealID:             deal.ID,
		Outcome:            resolution.Outcome,
		PotentialDuplicate: resolution.PotentialDuplicate,
	}, nil
}

// initialStage is the lowest ordered stage, or the configured fallback
func (s *LeadService) initialStage(ctx context.Context, tx *gorm.DB) (string, error) {
	stage, err := s.stageRepo.WithTx(tx).GetInitial(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load initial stage: %w", err)
	}
	return stage.Slug, nil
}

func (s *LeadService) afterCommit(ctx context.Context, deal *domain.Deal, res *Resolution, raw []byte) {
	contact := res.Contact
	receivedAt := time.Now().UTC()

	if s.syncer != nil {
		s.syncer.SyncContactAsync(ctx, syncer.SyncRequest{
			ContactID: contact.ID,
			Name:      contact.Name,
			Email:     contact.EmailValue(),
			Phone:     contact.PhoneValue(),
		})
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in lead follow-up", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
		defer cancel()

		err := s.publisher.PublishLeadIngested(ctx, events.LeadIngested{
			DealID:        deal.ID.String(),
			ContactID:     contact.ID.String(),
			ContactName:   contact.Name,
			Phone:         contact.PhoneValue(),
			Email:         contact.EmailValue(),
			InsuranceType: string(deal.InsuranceType),
			Stage:         deal.Stage,
			Resolution:    string(res.Outcome),
			OccurredAt:    receivedAt,
		})
		if err != nil {
			s.logger.Warn("Failed to publish lead event", zap.String("deal_id", deal.ID.String()), zap.Error(err))
		}

		err = s.notifier.NotifyNewLead(ctx, notify.NewLead{
			ContactName:   contact.Name,
			Phone:         contact.PhoneValue(),
			Email:         contact.EmailValue(),
			InsuranceType: string(deal.InsuranceType),
			Title:         deal.Title,
			DealID:        deal.ID.String(),
		})
		if err != nil {
			s.logger.Warn("Failed to notify broker", zap.String("deal_id", deal.ID.String()), zap.Error(err))
		}

		if len(raw) > 0 {
			if _, err := s.archive.ArchiveLead(ctx, deal.ID, raw, receivedAt); err != nil {
				s.logger.Warn("Failed to archive lead payload", zap.String("deal_id", deal.ID.String()), zap.Error(err))
			}
		}
	}()
}

// Wait blocks until every post-commit task started so far has finished
func (s *LeadService) Wait() {
	s.background.Wait()
}

func leadTitle(summary *string, insuranceType, name string) string {
	if summary != nil {
		if title := strings.TrimSpace(*summary); title != "" {
			return title
		}
	}
	prefix := strings.TrimSpace(insuranceType)
	if prefix == "" {
		prefix = defaultLeadTitlePrefix
	}
	return prefix + " - " + name
}

var insuranceTypeAccents = strings.NewReplacer("Ú", "U", "Ó", "O", "Ç", "C", "Ã", "A", "É", "E", "Á", "A")

// NormalizeInsuranceType upper-cases the category; unknown values become OUTROS
func NormalizeInsuranceType(raw string) domain.InsuranceType {
	it := domain.InsuranceType(insuranceTypeAccents.Replace(strings.ToUpper(strings.TrimSpace(raw))))
	if it.IsValid() {
		return it
	}
	return domain.InsuranceTypeOther
}

// insuranceData keeps a JSON object as is and replaces anything else with {}
func insuranceData(extras json.RawMessage) string {
	trimmed := bytes.TrimSpace(extras)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return "{}"
	}
	return string(trimmed)
}

// ParseEstimatedValue accepts a JSON number or a string such as "1500.50" or
// "1.500,50". Missing values yield an invalid NullDecimal and no error.
func ParseEstimatedValue(raw json.RawMessage) (decimal.NullDecimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.NullDecimal{}, nil
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("%w: estimated value: %v", ErrInvalidValue, err)
		}
		text = normalizeAmount(text)
		if text == "" {
			return decimal.NullDecimal{}, nil
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: estimated value %q", ErrInvalidValue, text)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: negative estimated value %q", ErrInvalidValue, text)
	}
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}, nil
}

// ParseLeadEmail returns the trimmed e-mail, or "" with an ErrInvalidValue
// when it is not a usable address. A lead with a bad e-mail is still a lead.
func ParseLeadEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", nil
	}
	if err := leadValidate.Var(email, "email,max=255"); err != nil {
		return "", fmt.Errorf("%w: e-mail %q", ErrInvalidValue, email)
	}
	return email, nil
}

// normalizeAmount strips currency symbols and converts the Brazilian
// "1.500,50" notation to "1500.50"
func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

// ParseRenewalDate reads dados_extras.renovacao as YYYY-MM-DD or RFC 3339
func ParseRenewalDate(extras json.RawMessage) (*time.Time, error) {
	if len(bytes.TrimSpace(extras)) == 0 {
		return nil, nil
	}

	var bag struct {
		Renovacao *string `json:"renovacao"`
	}
	if err := json.Unmarshal(extras, &bag); err != nil {
		return nil, fmt.Errorf("%w: dados_extras: %v", ErrInvalidValue, err)
	}
	if bag.Renovacao == nil || strings.TrimSpace(*bag.Renovacao) == "" {
		return nil, nil
	}

	raw := strings.TrimSpace(*bag.Renovacao)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &date, nil
		}
	}
	return nil, fmt.Errorf("%w: renewal date %q", ErrInvalidValue, raw)
}
