package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto uses vault in staging/production, environment elsewhere
	SourceAuto SecretSource = "auto"
)

// Fetcher retrieves a single named secret from a remote store
type Fetcher interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Provider abstracts secret retrieval from different sources
type Provider struct {
	source  SecretSource
	fetcher Fetcher
	logger  *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Binding ties a vault secret name and an environment variable to a config field
type Binding struct {
	SecretName string
	EnvName    string
	Target     *string
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a new secrets provider backed by Azure Key Vault when
// the resolved source is vault.
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	if source != SourceVault {
		logger.Info("Secrets provider initialized",
			zap.String("source", string(source)),
			zap.String("environment", cfg.Environment),
		)
		return &Provider{source: source, logger: logger}, nil
	}

	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name required when using vault secret source")
	}

	vaultClient, err := NewVaultClient(&VaultConfig{
		VaultName:    cfg.VaultName,
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return NewProviderWithFetcher(source, vaultClient, logger), nil
}

// NewProviderWithFetcher builds a provider around an existing fetcher
func NewProviderWithFetcher(source SecretSource, fetcher Fetcher, logger *zap.Logger) *Provider {
	return &Provider{source: source, fetcher: fetcher, logger: logger}
}

// GetSecret retrieves a secret by name. For the environment source the name
// is an environment variable, for vault it is the Key Vault secret name.
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		value := os.Getenv(secretName)
		if value == "" {
			return "", fmt.Errorf("environment variable '%s' not set", secretName)
		}
		return value, nil

	case SourceVault:
		if p.fetcher == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.fetcher.GetSecret(ctx, secretName)

	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// GetSecretOrEnv prefers an explicitly set environment variable and falls
// back to the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override",
			zap.String("env_name", envName),
		)
		return envValue, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Apply resolves every binding and writes non-empty values into its target.
// Missing secrets leave the target untouched and are reported by name.
func (p *Provider) Apply(ctx context.Context, bindings []Binding) []string {
	var missing []string
	for _, b := range bindings {
		value, err := p.GetSecretOrEnv(ctx, b.SecretName, b.EnvName)
		if err != nil || value == "" {
			missing = append(missing, b.SecretName)
			continue
		}
		*b.Target = value
	}
	if len(missing) > 0 {
		p.logger.Warn("Some secrets were not resolved, keeping configured values",
			zap.Strings("secrets", missing),
		)
	}
	return missing
}

// Source returns the current secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

// IsVaultEnabled returns true if secrets are loaded from vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
