package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// envProvider reads secrets from environment variables. The secret
// name is upper-cased, dashes and dots become underscores, and the
// configured prefix is prepended: "redis-password" with prefix
// "EMFGW_SECRET_" reads EMFGW_SECRET_REDIS_PASSWORD.
type envProvider struct {
	prefix string
}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider(prefix string) Provider {
	return &envProvider{prefix: prefix}
}

// Get implements Provider.
func (p *envProvider) Get(_ context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	key := p.prefix + envKey(name)
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("%w: %s (env %s)", ErrSecretNotFound, name, key)
	}
	return value, nil
}

func envKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, ".", "_")
	return key
}
