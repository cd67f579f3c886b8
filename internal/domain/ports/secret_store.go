package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Metadata  map[string]string
	Value     string
	Version   string
	CreatedAt string
}

// SecretStore retrieves credentials such as the provider API secret.
// Backends: environment, local files, AWS Secrets Manager, HashiCorp Vault.
type SecretStore interface {
	// GetSecret retrieves a secret by its path or name
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
