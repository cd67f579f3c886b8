package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"go.uber.org/zap"
)

// localSecretManager serves secrets from files under root, for local runs.
// A file holds either the raw value or {"value","tags","created_at"} JSON.
type localSecretManager struct {
	root   string
	logger *zap.Logger
}

func NewLocalSecretManager(root string, logger *zap.Logger) ports.SecretStore {
	return &localSecretManager{root: root, logger: logger}
}

type secretFile struct {
	Value     string            `json:"value"`
	Tags      map[string]string `json:"tags"`
	CreatedAt string            `json:"created_at"`
}

func (m *localSecretManager) GetSecret(_ context.Context, name string) (*ports.Secret, error) {
	// Rooting the name before joining keeps ../ from leaving root
	full := filepath.Join(m.root, filepath.Clean("/"+name))

	raw, err := os.ReadFile(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("secret not found: %s", name)
	case err != nil:
		return nil, fmt.Errorf("read secret %s: %w", name, err)
	}
	m.logger.Debug("Loaded secret file", zap.String("name", name))

	var doc secretFile
	if json.Unmarshal(raw, &doc) == nil && doc.Value != "" {
		return &ports.Secret{Value: doc.Value, Version: "file", Metadata: doc.Tags, CreatedAt: doc.CreatedAt}, nil
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		return nil, fmt.Errorf("secret %s is empty", name)
	}
	return &ports.Secret{Value: value, Version: "file"}, nil
}
