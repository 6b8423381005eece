package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/logger"
	"github.com/tork-crm/tork-api/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultContactName is stored when an inbound event carries no name
const DefaultContactName = "Sem Nome"

// ContactStore is the slice of the contact repository the resolver needs.
// Callers pass one bound to their transaction.
type ContactStore interface {
	GetByPhone(ctx context.Context, phone string) (*domain.Contact, error)
	GetByEmail(ctx context.Context, email string) (*domain.Contact, error)
	Create(ctx context.Context, contact *domain.Contact) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
}

// ResolveInput is a partial identity from an inbound event
type ResolveInput struct {
	Phone string
	Email string
	Name  string
	Type  domain.ContactType
}

// normalized trims every field and lower-cases the email
func (in ResolveInput) normalized() ResolveInput {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	return in
}

// ResolutionOutcome tells how the contact was found
type ResolutionOutcome string

const (
	OutcomeMatchedByPhone ResolutionOutcome = "matched_by_phone"
	OutcomeMatchedByEmail ResolutionOutcome = "matched_by_email"
	OutcomeCreated        ResolutionOutcome = "created"
	OutcomeNotFound       ResolutionOutcome = "not_found"
)

// Resolution is the result of ResolveOrCreate
type Resolution struct {
	Outcome ResolutionOutcome
	Contact *domain.Contact
	// PotentialDuplicate is set when phone and email point at different
	// contacts, when an incoming key conflicts with a stored one, or when a
	// backfill collided with another contact. The contact is never merged.
	PotentialDuplicate bool
	Reasons            []string
	// Changed is false when the call wrote nothing
	Changed bool
}

// Warning returns an ErrPotentialDuplicate describing the reasons, or nil
func (r *Resolution) Warning() error {
	if !r.PotentialDuplicate {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPotentialDuplicate, strings.Join(r.Reasons, "; "))
}

func (r *Resolution) flag(reason string) {
	r.PotentialDuplicate = true
	r.Reasons = append(r.Reasons, reason)
}

// ContactResolver finds or creates the canonical contact for a phone/email pair
type ContactResolver struct {
	requirePhone bool
	logger       *zap.Logger
}

func NewContactResolver(requirePhone bool, logger *zap.Logger) *ContactResolver {
	return &ContactResolver{requirePhone: requirePhone, logger: logger}
}

// RequirePhone reports whether new contacts need a phone
func (r *ContactResolver) RequirePhone() bool {
	return r.requirePhone
}

// Lookup finds the contact for the input without writing. Phone wins over
// email; ambiguous is true when the email belongs to a different contact.
func (r *ContactResolver) Lookup(ctx context.Context, store ContactStore, in ResolveInput) (*domain.Contact, ResolutionOutcome, bool, error) {
	in = in.normalized()
	if in.Phone == "" && in.Email == "" {
		return nil, OutcomeNotFound, false, ErrMissingIdentityKey
	}
	return r.lookup(ctx, store, in)
}

func (r *ContactResolver) lookup(ctx context.Context, store ContactStore, in ResolveInput) (*domain.Contact, ResolutionOutcome, bool, error) {
	var byPhone, byEmail *domain.Contact
	var err error

	if in.Phone != "" {
		if byPhone, err = findContact(ctx, store.GetByPhone, in.Phone); err != nil {
			return nil, OutcomeNotFound, false, fmt.Errorf("failed to look up contact by phone: %w", err)
		}
	}
	if in.Email != "" {
		if byEmail, err = findContact(ctx, store.GetByEmail, in.Email); err != nil {
			return nil, OutcomeNotFound, false, fmt.Errorf("failed to look up contact by email: %w", err)
		}
	}

	switch {
	case byPhone != nil:
		ambiguous := byEmail != nil && byEmail.ID != byPhone.ID
		return byPhone, OutcomeMatchedByPhone, ambiguous, nil
	case byEmail != nil:
		return byEmail, OutcomeMatchedByEmail, false, nil
	default:
		return nil, OutcomeNotFound, false, nil
	}
}

// ResolveOrCreate returns the contact owning the phone or email, creating it
// when neither key is known. It must run inside the caller's transaction;
// store is bound to it.
func (r *ContactResolver) ResolveOrCreate(ctx context.Context, store ContactStore, in ResolveInput) (*Resolution, error) {
	in = in.normalized()
	if in.Phone == "" && in.Email == "" {
		return nil, ErrMissingIdentityKey
	}

	res, err := r.resolve(ctx, store, in)
	if err != nil {
		return nil, err
	}

	metrics.RecordResolution(string(res.Outcome), res.PotentialDuplicate)
	if res.PotentialDuplicate {
		r.logger.Warn("Potential duplicate contact",
			zap.String("contact_id", res.Contact.ID.String()),
			zap.String("outcome", string(res.Outcome)),
			zap.String("phone", logger.MaskPhone(in.Phone)),
			zap.Strings("reasons", res.Reasons),
		)
	}
	return res, nil
}

func (r *ContactResolver) resolve(ctx context.Context, store ContactStore, in ResolveInput) (*Resolution, error) {
	contact, outcome, ambiguous, err := r.lookup(ctx, store, in)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		return r.applyMatch(ctx, store, contact, outcome, ambiguous, in)
	}

	if r.requirePhone && in.Phone == "" {
		return nil, ErrMissingRequiredPhone
	}

	created := &domain.Contact{
		Name: in.Name,
		Type: in.Type,
	}
	if created.Name == "" {
		created.Name = DefaultContactName
	}
	if !created.Type.IsValid() {
		created.Type = domain.ContactTypeIndividual
	}
	if in.Phone != "" {
		created.Phone = &in.Phone
	}
	if in.Email != "" {
		created.Email = &in.Email
	}

	err = store.Create(ctx, created)
	if err == nil {
		return &Resolution{Outcome: OutcomeCreated, Contact: created, Changed: true}, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	// a concurrent request created the contact between lookup and insert
	contact, outcome, ambiguous, err = r.lookup(ctx, store, in)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("failed to create contact: %w", gorm.ErrDuplicatedKey)
	}
	r.logger.Debug("Contact created concurrently, using existing row",
		zap.String("contact_id", contact.ID.String()),
	)
	return r.applyMatch(ctx, store, contact, outcome, ambiguous, in)
}

// applyMatch refreshes the name and backfills empty keys. Stored keys are
// never overwritten.
func (r *ContactResolver) applyMatch(ctx context.Context, store ContactStore, contact *domain.Contact, outcome ResolutionOutcome, ambiguous bool, in ResolveInput) (*Resolution, error) {
	res := &Resolution{Outcome: outcome, Contact: contact}
	if ambiguous {
		res.flag("email belongs to another contact")
	}

	names := map[string]interface{}{}
	keys := map[string]interface{}{}

	if in.Name != "" && in.Name != contact.Name {
		names["name"] = in.Name
	}

	switch current := contact.PhoneValue(); {
	case in.Phone == "" || in.Phone == current:
	case current == "":
		keys["phone"] = in.Phone
	default:
		res.flag("phone differs from stored phone")
	}

	switch current := contact.EmailValue(); {
	case in.Email == "" || in.Email == current:
	case ambiguous:
		// owned by the other contact; backfilling would collide
	case current == "":
		keys["email"] = in.Email
	default:
		res.flag("email differs from stored email")
	}

	updates := make(map[string]interface{}, len(names)+len(keys))
	for k, v := range names {
		updates[k] = v
	}
	for k, v := range keys {
		updates[k] = v
	}
	if len(updates) == 0 {
		return res, nil
	}

	err := store.Update(ctx, contact.ID, updates)
	if errors.Is(err, gorm.ErrDuplicatedKey) && len(keys) > 0 {
		res.flag("backfill collided with another contact")
		keys = nil
		updates = names
		err = nil
		if len(updates) > 0 {
			err = store.Update(ctx, contact.ID, updates)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	if v, ok := updates["name"]; ok {
		contact.Name = v.(string)
	}
	if v, ok := keys["phone"]; ok {
		phone := v.(string)
		contact.Phone = &phone
	}
	if v, ok := keys["email"]; ok {
		email := v.(string)
		contact.Email = &email
	}
	res.Changed = len(updates) > 0
	return res, nil
}

// findContact maps gorm.ErrRecordNotFound to a nil contact
func findContact(ctx context.Context, get func(context.Context, string) (*domain.Contact, error), key string) (*domain.Contact, error) {
	contact, err := get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}
