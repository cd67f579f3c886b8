package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
)

// envSecretStore treats the secret path as an environment variable name
type envSecretStore struct {
	lookup func(string) (string, bool)
}

// NewEnvSecretStore creates a store backed by the process environment
func NewEnvSecretStore() ports.SecretStore {
	return &envSecretStore{lookup: os.LookupEnv}
}

// GetSecret returns the value of the environment variable named by path
func (s *envSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	value, ok := s.lookup(path)
	if !ok || value == "" {
		return nil, fmt.Errorf("secret not found: environment variable %s is not set", path)
	}
	return &ports.Secret{Value: value, Version: "env"}, nil
}
