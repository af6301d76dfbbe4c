package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileProvider reads each secret from a file named after it under a
// base directory, the layout kubernetes secret volumes mount.
type fileProvider struct {
	base string
}

// NewFileProvider creates a file-based provider rooted at base.
func NewFileProvider(base string) Provider {
	return &fileProvider{base: base}
}

// Get implements Provider.
func (p *fileProvider) Get(_ context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	path := filepath.Join(p.base, name)
	data, err := os.ReadFile(path) //nolint:gosec // name is validated against the safe pattern
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("reading secret file %s: %w", path, err)
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}
