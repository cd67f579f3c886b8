package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"go.uber.org/zap"
)

// VaultConfig points the store at a KV v2 mount.
// Token wins over AppRole when both are set.
type VaultConfig struct {
	Address   string
	Token     string
	RoleID    string
	SecretID  string
	MountPath string
	CacheTTL  time.Duration
}

func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:   address,
		MountPath: "secret",
		CacheTTL:  5 * time.Minute,
	}
}

type vaultStore struct {
	kv     *vault.KVv2
	mount  string
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter logs in to Vault and returns a store reading KV v2 entries.
// The entry's "value" key is the secret, the remaining string keys become metadata.
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretStore, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.Address

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}

	if err := login(ctx, client, cfg); err != nil {
		return nil, err
	}

	logger.Info("Vault secret store ready",
		zap.String("address", cfg.Address),
		zap.String("mount", cfg.MountPath),
	)

	return &vaultStore{
		kv:     client.KVv2(cfg.MountPath),
		mount:  cfg.MountPath,
		logger: logger,
		cache:  newSecretCache(cfg.CacheTTL),
	}, nil
}

func login(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch {
	case cfg.Token != "":
		client.SetToken(cfg.Token)
		return nil
	case cfg.RoleID != "" && cfg.SecretID != "":
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("vault approle login: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return errors.New("vault approle login returned no token")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil
	default:
		return errors.New("vault token is required (or role_id and secret_id)")
	}
}

func (s *vaultStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if hit := s.cache.get(path); hit != nil {
		return hit, nil
	}

	entry, err := s.kv.Get(ctx, path)
	if err != nil {
		s.logger.Warn("Vault read failed", zap.String("mount", s.mount), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("vault read %s/%s: %w", s.mount, path, err)
	}

	value, _ := entry.Data["value"].(string)
	if value == "" {
		return nil, fmt.Errorf("vault entry %s has no value key", path)
	}

	secret := &ports.Secret{Value: value, Metadata: map[string]string{}}
	for k, v := range entry.Data {
		if str, ok := v.(string); ok && k != "value" {
			secret.Metadata[k] = str
		}
	}
	if entry.VersionMetadata != nil {
		secret.Version = fmt.Sprint(entry.VersionMetadata.Version)
		secret.CreatedAt = entry.VersionMetadata.CreatedTime.Format(time.RFC3339)
	}

	s.cache.set(path, secret)
	return secret, nil
}
