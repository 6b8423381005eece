package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Tork CRM API", cfg.App.Name)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Contacts.RequirePhone)
	assert.Equal(t, "NOVO", cfg.Pipeline.InitialStage)
	assert.Equal(t, 8*time.Hour, cfg.JWT.ExpiresInDuration())
	assert.Equal(t, 10*time.Second, cfg.Helpdesk.TimeoutDuration())
	assert.Equal(t, "1", cfg.Helpdesk.AccountID)
	assert.False(t, cfg.Helpdesk.SyncEnabled())
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/health")
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("CHATWOOT_API_URL", "https://chat.example.com")
	t.Setenv("CHATWOOT_ACCESS_TOKEN", "token-123")
	t.Setenv("CHATWOOT_ACCOUNT_ID", "7")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Helpdesk.URL)
	assert.Equal(t, "7", cfg.Helpdesk.AccountID)
	assert.True(t, cfg.Helpdesk.SyncEnabled())
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoad_NestedEnvOverride(t *testing.T) {
	t.Setenv("CONTACTS_REQUIREPHONE", "false")
	t.Setenv("DATABASE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Contacts.RequirePhone)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestSecretBindings_TargetConfigFields(t *testing.T) {
	cfg := &Config{}
	bindings := SecretBindings(cfg)
	require.NotEmpty(t, bindings)

	for _, b := range bindings {
		if b.SecretName == "jwt-secret" {
			*b.Target = "bound"
		}
	}
	assert.Equal(t, "bound", cfg.JWT.Secret)
}
