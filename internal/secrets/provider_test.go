package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapFetcher map[string]string

func (m mapFetcher) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source SecretSource
		env    string
		want   SecretSource
	}{
		{SourceAuto, "development", SourceEnvironment},
		{SourceAuto, "", SourceEnvironment},
		{SourceAuto, "production", SourceVault},
		{SourceAuto, "staging", SourceVault},
		{SourceEnvironment, "production", SourceEnvironment},
		{SourceVault, "development", SourceVault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveSource(tt.source, tt.env), "%s/%s", tt.source, tt.env)
	}
}

func TestProvider_Apply(t *testing.T) {
	p := NewProviderWithFetcher(SourceVault, mapFetcher{
		"helpdesk-access-token": "vault-token",
	}, zap.NewNop())

	t.Setenv("JWT_SECRET", "env-secret")

	var token, jwtSecret, dbPassword string
	dbPassword = "configured"

	missing := p.Apply(context.Background(), []Binding{
		{SecretName: "helpdesk-access-token", EnvName: "TORK_TEST_UNSET_TOKEN", Target: &token},
		{SecretName: "jwt-secret", EnvName: "JWT_SECRET", Target: &jwtSecret},
		{SecretName: "postgres-password", EnvName: "TORK_TEST_UNSET_PASSWORD", Target: &dbPassword},
	})

	assert.Equal(t, "vault-token", token)
	assert.Equal(t, "env-secret", jwtSecret, "environment overrides the vault")
	assert.Equal(t, "configured", dbPassword, "missing secrets keep the configured value")
	assert.Equal(t, []string{"postgres-password"}, missing)
}

func TestProvider_EnvironmentSource(t *testing.T) {
	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsVaultEnabled())

	t.Setenv("TORK_TEST_SECRET", "value")
	v, err := p.GetSecret(context.Background(), "TORK_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = p.GetSecret(context.Background(), "TORK_TEST_DEFINITELY_UNSET")
	assert.Error(t, err)
}
