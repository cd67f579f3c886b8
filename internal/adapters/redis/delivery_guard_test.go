package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupGuard(t *testing.T) (*DeliveryGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewDeliveryGuard(client, GuardConfig{
		InFlightTTL: time.Minute,
		DoneTTL:     time.Hour,
	}, zap.NewNop())
	return guard, mr
}

func TestClaim_FirstDeliveryAcquires(t *testing.T) {
	guard, mr := setupGuard(t)
	ctx := context.Background()

	res, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, ports.ClaimAcquired, res)

	val, err := mr.Get("billing:webhook:Paid:pay_1")
	require.NoError(t, err)
	assert.Equal(t, "inflight", val)
	assert.Equal(t, time.Minute, mr.TTL("billing:webhook:Paid:pay_1"))
}

func TestClaim_ConcurrentDeliveryIsInFlight(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)

	res, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, ports.ClaimInFlight, res)
}

func TestClaim_StatusesAreIndependent(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)

	res, err := guard.Claim(ctx, "Cancelled", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, ports.ClaimAcquired, res)
}

func TestComplete_LaterDeliveryIsDone(t *testing.T) {
	guard, mr := setupGuard(t)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)
	require.NoError(t, guard.Complete(ctx, "Paid", "pay_1"))
	assert.Equal(t, time.Hour, mr.TTL("billing:webhook:Paid:pay_1"))

	res, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, ports.ClaimDone, res)
}

func TestRelease_AllowsRedelivery(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "Cancelled", "pay_1")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "Cancelled", "pay_1"))

	res, err := guard.Claim(ctx, "Cancelled", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, ports.ClaimAcquired, res)
}

func TestClaim_InFlightMarkerExpires(t *testing.T) {
	guard, mr := setupGuard(t)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	res, err := guard.Claim(ctx, "Paid", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, ports.ClaimAcquired, res)
}

func TestClaim_RedisDown(t *testing.T) {
	guard, mr := setupGuard(t)
	mr.Close()

	_, err := guard.Claim(context.Background(), "Paid", "pay_1")
	assert.Error(t, err)
	assert.Error(t, guard.Ping(context.Background()))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	_, err = NewClient("://bad")
	assert.Error(t, err)
}
