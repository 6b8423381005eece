package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/config"
	"go.uber.org/zap"
)

func TestNewPublisher_DisabledIsNoop(t *testing.T) {
	p, err := NewPublisher(&config.EventsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.PublishLeadIngested(context.Background(), LeadIngested{}))
	assert.NoError(t, p.Close())
}

func TestLeadIngested_WireFormat(t *testing.T) {
	event := LeadIngested{
		DealID:        "d-1",
		ContactID:     "c-1",
		ContactName:   "Ana",
		Phone:         "5511999990001",
		InsuranceType: "AUTO",
		Stage:         "NOVO",
		Resolution:    "created",
		OccurredAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"deal_id":"d-1","contact_id":"c-1","contact_name":"Ana","phone":"5511999990001",
		"insurance_type":"AUTO","stage":"NOVO","resolution":"created","occurred_at":"2026-03-01T10:00:00Z"
	}`, string(raw))
}
