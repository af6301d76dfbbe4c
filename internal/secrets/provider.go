package secrets

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
)

// Provider resolves a named secret to its value.
type Provider interface {
	// Get returns the secret value or ErrSecretNotFound.
	Get(ctx context.Context, name string) (string, error)
}

// secret names are restricted so file and Vault paths cannot escape
// their namespace.
var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// New constructs the provider named by cfg. A nil cfg yields the env
// provider with the default prefix.
func New(cfg *config.SecretsConfig, logger observability.Logger) (Provider, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.GetProvider() {
	case config.SecretsProviderEnv:
		return NewEnvProvider(cfg.GetEnvPrefix()), nil

	case config.SecretsProviderFile:
		if cfg == nil || cfg.FilePath == "" {
			return nil, fmt.Errorf("file secrets provider requires filePath")
		}
		return NewFileProvider(cfg.FilePath), nil

	case config.SecretsProviderVault:
		if cfg == nil || cfg.Vault == nil {
			return nil, fmt.Errorf("vault secrets provider requires vault configuration")
		}
		return NewVaultProvider(cfg.Vault, logger)

	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.GetProvider())
	}
}

// Resolve fetches an optional secret: an empty name resolves to "".
func Resolve(ctx context.Context, provider Provider, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	value, err := provider.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("resolving secret %q: %w", name, err)
	}
	return value, nil
}
