// Package limiter bounds the number of simultaneous long-running
// export streams per identity. Each stream holds a grant for its whole
// lifetime; the per-key cap protects the database from unbounded
// concurrent full scans by a single user.
//
// The controller is an injected, explicitly-owned value rather than a
// process-wide singleton, so release behavior is unit-testable.
package limiter

import (
	"fmt"
	"sync"
)

// GrantLimitError is returned when a key already holds the maximum
// number of grants. Surfaced to callers as a rate-limit rejection.
type GrantLimitError struct {
	Key  string
	Held int
}

func (e *GrantLimitError) Error() string {
	return fmt.Sprintf("user %q already holds %d grant(s)", e.Key, e.Held)
}

// Controller tracks active grants per identity key. The limit is a
// hard cap: the count is re-validated under the write lock, so two
// concurrent acquisitions cannot both slip past a full key.
type Controller struct {
	maxPerKey int

	mu     sync.RWMutex
	grants map[string]int
}

// New creates a controller allowing at most maxPerKey concurrent
// grants for any single key.
func New(maxPerKey int) *Controller {
	if maxPerKey <= 0 {
		maxPerKey = 1
	}
	return &Controller{
		maxPerKey: maxPerKey,
		grants:    make(map[string]int),
	}
}

// MaxPerKey returns the per-key grant cap.
func (c *Controller) MaxPerKey() int { return c.maxPerKey }

// Acquire takes a grant for key. The caller must call Release exactly
// once when the guarded operation finishes (use defer).
func (c *Controller) Acquire(key string) (*Grant, error) {
	// Optimistic read-lock check keeps contention low when a key is
	// already at its limit.
	c.mu.RLock()
	held := c.grants[key]
	c.mu.RUnlock()
	if held >= c.maxPerKey {
		return nil, &GrantLimitError{Key: key, Held: held}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-validate under the write lock: the optimistic check races
	// with concurrent acquisitions.
	if held := c.grants[key]; held >= c.maxPerKey {
		return nil, &GrantLimitError{Key: key, Held: held}
	}
	c.grants[key]++
	return &Grant{key: key, c: c}, nil
}

// Held returns the number of grants currently held for key.
func (c *Controller) Held(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grants[key]
}

// Grant is one active slot for a key. Releasing it decrements the
// key's count, removing the entry when it drops to zero.
type Grant struct {
	key  string
	c    *Controller
	once sync.Once
}

// Release returns the slot. Safe to call more than once; only the
// first call has an effect.
func (g *Grant) Release() {
	g.once.Do(func() {
		g.c.mu.Lock()
		defer g.c.mu.Unlock()
		switch held := g.c.grants[g.key]; {
		case held <= 1:
			delete(g.c.grants, g.key)
		default:
			g.c.grants[g.key] = held - 1
		}
	})
}
