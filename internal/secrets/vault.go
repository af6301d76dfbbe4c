package secrets

import (
	"context"
	"fmt"
	"path"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
)

// vaultProvider reads secrets from a Vault KV v2 mount. Each secret is
// stored at <pathPrefix>/<name> with the value under the "value" key.
type vaultProvider struct {
	client     *vaultapi.Client
	mount      string
	pathPrefix string
	logger     observability.Logger
}

// NewVaultProvider creates a Vault-backed provider. The token comes
// from the config or, preferably, the VAULT_TOKEN environment variable
// picked up by the Vault client's defaults.
func NewVaultProvider(cfg *config.VaultConfig, logger observability.Logger) (Provider, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("vault provider requires an address")
	}

	clientCfg := vaultapi.DefaultConfig()
	clientCfg.Address = cfg.Address
	clientCfg.Timeout = cfg.GetTimeout()

	client, err := vaultapi.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	if logger == nil {
		logger = observability.NopLogger()
	}
	logger.Info("vault secrets provider configured",
		observability.String("address", cfg.Address),
		observability.String("mount", cfg.GetMount()),
	)

	return &vaultProvider{
		client:     client,
		mount:      cfg.GetMount(),
		pathPrefix: cfg.PathPrefix,
		logger:     logger,
	}, nil
}

// Get implements Provider.
func (p *vaultProvider) Get(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	secretPath := name
	if p.pathPrefix != "" {
		secretPath = path.Join(p.pathPrefix, name)
	}

	secret, err := p.client.KVv2(p.mount).Get(ctx, secretPath)
	if err != nil {
		if err == vaultapi.ErrSecretNotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("reading vault secret %s: %w", secretPath, err)
	}

	raw, ok := secret.Data["value"]
	if !ok {
		return "", fmt.Errorf("%w: %s has no value key", ErrSecretNotFound, name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault secret %s: value is not a string", secretPath)
	}

	return value, nil
}
