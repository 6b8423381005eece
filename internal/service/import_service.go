package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/helpdesk"
	"github.com/tork-crm/tork-api/internal/metrics"
	"github.com/tork-crm/tork-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContactLister pages through the helpdesk contact list
type ContactLister interface {
	ListContacts(ctx context.Context, page int) ([]helpdesk.Contact, error)
}

// ImportService pulls helpdesk contacts into the CRM. Contacts without a
// phone are skipped; the others go through the resolver one by one.
type ImportService struct {
	db          *gorm.DB
	contactRepo *repository.ContactRepository
	resolver    *ContactResolver
	helpdesk    ContactLister
	maxPages    int
	logger      *zap.Logger
}

func NewImportService(
	db *gorm.DB,
	contactRepo *repository.ContactRepository,
	resolver *ContactResolver,
	client ContactLister,
	maxPages int,
	logger *zap.Logger,
) *ImportService {
	if maxPages <= 0 {
		maxPages = 100
	}
	return &ImportService{
		db:          db,
		contactRepo: contactRepo,
		resolver:    resolver,
		helpdesk:    client,
		maxPages:    maxPages,
		logger:      logger,
	}
}

// ImportContacts scans every helpdesk page until an empty one. Only newly
// created contacts count as imported.
func (s *ImportService) ImportContacts(ctx context.Context) (*domain.ImportResult, error) {
	result := &domain.ImportResult{}

	for page := 1; page <= s.maxPages; page++ {
		contacts, err := s.helpdesk.ListContacts(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list helpdesk contacts (page %d): %w", page, err)
		}
		if len(contacts) == 0 {
			break
		}

		for _, c := range contacts {
			result.TotalScanned++
			if strings.TrimSpace(c.PhoneNumber) == "" {
				result.Skipped++
				continue
			}

			created, err := s.importOne(ctx, c)
			if err != nil {
				result.Failed++
				s.logger.Warn("Failed to import helpdesk contact",
					zap.Int64("helpdesk_contact_id", c.ID),
					zap.Error(err),
				)
				continue
			}
			if created {
				result.Imported++
			}
		}

		if page == s.maxPages {
			s.logger.Warn("Helpdesk import stopped at page limit", zap.Int("max_pages", s.maxPages))
		}
	}

	metrics.RecordImported(result.Imported)
	result.Success = true
	result.Message = fmt.Sprintf("Importação concluída. %d novos contatos.", result.Imported)

	s.logger.Info("Helpdesk import finished",
		zap.Int("imported", result.Imported),
		zap.Int("total_scanned", result.TotalScanned),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *ImportService) importOne(ctx context.Context, c helpdesk.Contact) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.resolver.ResolveOrCreate(ctx, s.contactRepo.WithTx(tx), ResolveInput{
			Phone: c.PhoneNumber,
			Email: c.Email,
			Name:  c.Name,
			Type:  domain.ContactTypeIndividual,
		})
		if err != nil {
			return err
		}
		created = res.Outcome == OutcomeCreated
		return nil
	})
	return created, err
}
