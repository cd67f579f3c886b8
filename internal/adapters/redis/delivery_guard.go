// Package redis holds the Redis-backed webhook delivery guard.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "billing:webhook:"
	valueInFlight = "inflight"
	valueDone     = "done"

	// DefaultInFlightTTL bounds how long a crashed worker can block redelivery
	DefaultInFlightTTL = 2 * time.Minute
	// DefaultDoneTTL is how long a processed delivery is remembered
	DefaultDoneTTL = 72 * time.Hour
)

// GuardConfig holds TTLs for claim markers
type GuardConfig struct {
	InFlightTTL time.Duration
	DoneTTL     time.Duration
}

// DeliveryGuard implements ports.DeliveryGuard with SETNX markers
type DeliveryGuard struct {
	client      goredis.UniversalClient
	inFlightTTL time.Duration
	doneTTL     time.Duration
	logger      *zap.Logger
}

// NewDeliveryGuard creates a guard over an existing client
func NewDeliveryGuard(client goredis.UniversalClient, cfg GuardConfig, logger *zap.Logger) *DeliveryGuard {
	if cfg.InFlightTTL <= 0 {
		cfg.InFlightTTL = DefaultInFlightTTL
	}
	if cfg.DoneTTL <= 0 {
		cfg.DoneTTL = DefaultDoneTTL
	}
	return &DeliveryGuard{
		client:      client,
		inFlightTTL: cfg.InFlightTTL,
		doneTTL:     cfg.DoneTTL,
		logger:      logger,
	}
}

// NewClient parses a redis:// URL into a client
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

func deliveryKey(status, paymentID string) string {
	return keyPrefix + status + ":" + paymentID
}

// Claim marks the delivery in flight, or reports who already holds it
func (g *DeliveryGuard) Claim(ctx context.Context, status, paymentID string) (ports.ClaimResult, error) {
	key := deliveryKey(status, paymentID)

	ok, err := g.client.SetNX(ctx, key, valueInFlight, g.inFlightTTL).Result()
	if err != nil {
		return ports.ClaimAcquired, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return ports.ClaimAcquired, nil
	}

	val, err := g.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		// Marker expired between SETNX and GET; try once more
		ok, err = g.client.SetNX(ctx, key, valueInFlight, g.inFlightTTL).Result()
		if err != nil {
			return ports.ClaimAcquired, fmt.Errorf("claim %s: %w", key, err)
		}
		if ok {
			return ports.ClaimAcquired, nil
		}
		return ports.ClaimInFlight, nil
	}
	if err != nil {
		return ports.ClaimAcquired, fmt.Errorf("read %s: %w", key, err)
	}

	if val == valueDone {
		return ports.ClaimDone, nil
	}
	return ports.ClaimInFlight, nil
}

// Complete remembers the delivery as processed
func (g *DeliveryGuard) Complete(ctx context.Context, status, paymentID string) error {
	key := deliveryKey(status, paymentID)
	if err := g.client.Set(ctx, key, valueDone, g.doneTTL).Err(); err != nil {
		return fmt.Errorf("complete %s: %w", key, err)
	}
	return nil
}

// Release drops the in-flight marker so a redelivery is processed
func (g *DeliveryGuard) Release(ctx context.Context, status, paymentID string) error {
	key := deliveryKey(status, paymentID)
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	g.logger.Debug("Released delivery claim", zap.String("key", key))
	return nil
}

// Ping reports whether Redis is reachable
func (g *DeliveryGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
