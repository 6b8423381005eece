package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeadArchiver keeps the raw body of every inbound lead for audit
type LeadArchiver interface {
	ArchiveLead(ctx context.Context, dealID uuid.UUID, payload []byte, receivedAt time.Time) (string, error)
}

// LeadArchive writes lead payloads as JSON objects partitioned by day:
// leads/2006/01/02/<dealID>.json
type LeadArchive struct {
	store  Storage
	logger *zap.Logger
}

func NewLeadArchive(store Storage, logger *zap.Logger) *LeadArchive {
	return &LeadArchive{store: store, logger: logger}
}

// ArchiveLead stores the payload and returns its key
func (a *LeadArchive) ArchiveLead(ctx context.Context, dealID uuid.UUID, payload []byte, receivedAt time.Time) (string, error) {
	key := LeadKey(dealID, receivedAt)
	size, err := a.store.Put(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to archive lead payload: %w", err)
	}

	a.logger.Debug("Lead payload archived",
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return key, nil
}

// LeadKey is the object key of a lead payload
func LeadKey(dealID uuid.UUID, receivedAt time.Time) string {
	return path.Join("leads", receivedAt.UTC().Format("2006/01/02"), dealID.String()+".json")
}

// NoopArchive discards payloads when archiving is disabled
type NoopArchive struct{}

func (NoopArchive) ArchiveLead(context.Context, uuid.UUID, []byte, time.Time) (string, error) {
	return "", nil
}
