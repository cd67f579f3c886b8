package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"go.uber.org/zap"
)

// AWSSecretsManagerConfig selects the region and, for LocalStack, an endpoint override
type AWSSecretsManagerConfig struct {
	Region   string
	Profile  string
	Endpoint string
	CacheTTL time.Duration
}

func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{Region: region, CacheTTL: 5 * time.Minute}
}

// secretValueGetter is the slice of *secretsmanager.Client used here
type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type awsSecretStore struct {
	api    secretValueGetter
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSSecretsManagerAdapter loads the default credential chain and returns a store
func NewAWSSecretsManagerAdapter(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (ports.SecretStore, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("AWS secret store ready", zap.String("region", cfg.Region))
	return newAWSAdapter(client, cfg, logger), nil
}

func newAWSAdapter(api secretValueGetter, cfg *AWSSecretsManagerConfig, logger *zap.Logger) *awsSecretStore {
	return &awsSecretStore{api: api, logger: logger, cache: newSecretCache(cfg.CacheTTL)}
}

// GetSecret accepts a secret name or ARN
func (s *awsSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if hit := s.cache.get(path); hit != nil {
		return hit, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)})
	if err != nil {
		s.logger.Warn("AWS secret read failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("aws secret %s: %w", path, err)
	}
	if aws.ToString(out.SecretString) == "" {
		return nil, fmt.Errorf("aws secret %s has no string value", path)
	}

	secret := &ports.Secret{
		Value:   aws.ToString(out.SecretString),
		Version: aws.ToString(out.VersionId),
		Metadata: map[string]string{
			"arn":  aws.ToString(out.ARN),
			"name": aws.ToString(out.Name),
		},
	}
	if out.CreatedDate != nil {
		secret.CreatedAt = out.CreatedDate.UTC().Format(time.RFC3339)
	}

	s.cache.set(path, secret)
	return secret, nil
}
