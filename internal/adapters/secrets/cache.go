package secrets

import (
	"sync"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
)

type cachedSecret struct {
	*ports.Secret
	until time.Time
}

// secretCache remembers remote reads for ttl. A zero ttl disables it.
type secretCache struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	byID map[string]cachedSecret
}

func newSecretCache(ttl time.Duration) *secretCache {
	return &secretCache{ttl: ttl, now: time.Now, byID: map[string]cachedSecret{}}
}

func (c *secretCache) get(path string) *ports.Secret {
	c.mu.Lock()
	defer c.mu.Unlock()
	hit, ok := c.byID[path]
	if !ok || !c.now().Before(hit.until) {
		return nil
	}
	return hit.Secret
}

func (c *secretCache) set(path string, s *ports.Secret) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.byID[path] = cachedSecret{Secret: s, until: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
