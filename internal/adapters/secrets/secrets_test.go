package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecretsManager struct {
	out   *secretsmanager.GetSecretValueOutput
	err   error
	calls int
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	return f.out, f.err
}

func TestAWSAdapter_GetSecretCaches(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String("portone-secret"),
		VersionId:    aws.String("v7"),
		ARN:          aws.String("arn:aws:secretsmanager:ap-northeast-2:1:secret:portone"),
		Name:         aws.String("billing/portone"),
		CreatedDate:  &created,
	}}
	adapter := newAWSAdapter(fake, DefaultAWSSecretsManagerConfig("ap-northeast-2"), zap.NewNop())

	secret, err := adapter.GetSecret(context.Background(), "billing/portone")
	require.NoError(t, err)
	assert.Equal(t, "portone-secret", secret.Value)
	assert.Equal(t, "v7", secret.Version)
	assert.Equal(t, "billing/portone", secret.Metadata["name"])
	assert.Equal(t, "2025-01-01T00:00:00Z", secret.CreatedAt)

	_, err = adapter.GetSecret(context.Background(), "billing/portone")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestAWSAdapter_Errors(t *testing.T) {
	fake := &fakeSecretsManager{err: errors.New("AccessDeniedException")}
	adapter := newAWSAdapter(fake, DefaultAWSSecretsManagerConfig("ap-northeast-2"), zap.NewNop())

	_, err := adapter.GetSecret(context.Background(), "billing/portone")
	assert.ErrorContains(t, err, "AccessDeniedException")

	fake.err = nil
	fake.out = &secretsmanager.GetSecretValueOutput{}
	_, err = adapter.GetSecret(context.Background(), "billing/portone")
	assert.ErrorContains(t, err, "no string value")
}

func TestVaultAdapter_KVv2(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/billing/portone", r.URL.Path)
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"value":"vault-secret","owner":"billing"},"metadata":{"version":3,"created_time":"2025-01-01T00:00:00Z"}}}`))
	}))
	defer server.Close()

	cfg := DefaultVaultConfig(server.URL)
	cfg.Token = "root-token"
	store, err := NewVaultAdapter(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	secret, err := store.GetSecret(context.Background(), "billing/portone")
	require.NoError(t, err)
	assert.Equal(t, "vault-secret", secret.Value)
	assert.Equal(t, "3", secret.Version)
	assert.Equal(t, "billing", secret.Metadata["owner"])
}

func TestVaultAdapter_MissingSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	}))
	defer server.Close()

	cfg := DefaultVaultConfig(server.URL)
	cfg.Token = "root-token"
	store, err := NewVaultAdapter(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = store.GetSecret(context.Background(), "billing/missing")
	assert.Error(t, err)
}

func TestVaultAdapter_RequiresToken(t *testing.T) {
	_, err := NewVaultAdapter(context.Background(), DefaultVaultConfig("http://127.0.0.1:8200"), zap.NewNop())
	assert.ErrorContains(t, err, "token is required")
}

func TestLocalSecretManager(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain"), []byte("plain-secret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "json"), []byte(`{"value":"json-secret","tags":{"env":"dev"}}`), 0o600))

	store := NewLocalSecretManager(dir, zap.NewNop())

	plain, err := store.GetSecret(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain-secret", plain.Value)

	js, err := store.GetSecret(context.Background(), "json")
	require.NoError(t, err)
	assert.Equal(t, "json-secret", js.Value)
	assert.Equal(t, "dev", js.Metadata["env"])

	_, err = store.GetSecret(context.Background(), "missing")
	assert.ErrorContains(t, err, "secret not found")

	_, err = store.GetSecret(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestEnvSecretStore(t *testing.T) {
	t.Setenv("BILLING_TEST_SECRET", "from-env")
	store := NewEnvSecretStore()

	value, err := Resolve(context.Background(), store, "BILLING_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = Resolve(context.Background(), store, "BILLING_TEST_SECRET_UNSET")
	assert.Error(t, err)
}

func TestSecretCache_Expires(t *testing.T) {
	cache := newSecretCache(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.set("k", &ports.Secret{Value: "v"})
	assert.NotNil(t, cache.get("k"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, cache.get("k"))

	disabled := newSecretCache(0)
	disabled.set("k", &ports.Secret{Value: "v"})
	assert.Nil(t, disabled.get("k"))
}

func TestNewSecretStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewSecretStore(ctx, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &envSecretStore{}, store)

	store, err = NewSecretStore(ctx, Config{Backend: BackendLocal, LocalDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &localSecretManager{}, store)

	_, err = NewSecretStore(ctx, Config{Backend: "gcp"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown secret backend")
}
