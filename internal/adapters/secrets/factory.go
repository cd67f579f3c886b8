package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"go.uber.org/zap"
)

// Backend names accepted by NewSecretStore
const (
	BackendEnv   = "env"
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
)

// Config selects and configures a secret backend
type Config struct {
	Backend    string
	Region     string
	Endpoint   string
	VaultAddr  string
	VaultToken string
	VaultMount string
	LocalDir   string
	CacheTTL   time.Duration
}

// NewSecretStore builds the store named by cfg.Backend
func NewSecretStore(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretStore, error) {
	switch cfg.Backend {
	case "", BackendEnv:
		return NewEnvSecretStore(), nil

	case BackendLocal:
		return NewLocalSecretManager(cfg.LocalDir, logger), nil

	case BackendAWS:
		awsCfg := DefaultAWSSecretsManagerConfig(cfg.Region)
		awsCfg.Endpoint = cfg.Endpoint
		if cfg.CacheTTL > 0 {
			awsCfg.CacheTTL = cfg.CacheTTL
		}
		return NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case BackendVault:
		vaultCfg := DefaultVaultConfig(cfg.VaultAddr)
		vaultCfg.Token = cfg.VaultToken
		if cfg.VaultMount != "" {
			vaultCfg.MountPath = cfg.VaultMount
		}
		if cfg.CacheTTL > 0 {
			vaultCfg.CacheTTL = cfg.CacheTTL
		}
		return NewVaultAdapter(ctx, vaultCfg, logger)

	default:
		return nil, fmt.Errorf("unknown secret backend %q", cfg.Backend)
	}
}

// Resolve returns the value stored at path
func Resolve(ctx context.Context, store ports.SecretStore, path string) (string, error) {
	secret, err := store.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	return secret.Value, nil
}
