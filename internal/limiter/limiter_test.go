package limiter

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestAcquire_CapEnforced(t *testing.T) {
	c := New(2)

	g1, err := c.Acquire("alice")
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	g2, err := c.Acquire("alice")
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	_, err = c.Acquire("alice")
	var limitErr *GrantLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("third Acquire = %v, want *GrantLimitError", err)
	}
	if limitErr.Key != "alice" || limitErr.Held != 2 {
		t.Errorf("GrantLimitError = %+v", limitErr)
	}

	// Other keys are unaffected.
	gb, err := c.Acquire("bob")
	if err != nil {
		t.Fatalf("Acquire for other key: %v", err)
	}
	gb.Release()

	g1.Release()
	if _, err := c.Acquire("alice"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	g2.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	c := New(1)

	g, err := c.Acquire("alice")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	g.Release()
	g.Release() // second call must not go negative

	if held := c.Held("alice"); held != 0 {
		t.Fatalf("Held = %d, want 0", held)
	}
	g2, err := c.Acquire("alice")
	if err != nil {
		t.Fatalf("Acquire after double release: %v", err)
	}
	g2.Release()
}

func TestRelease_RemovesEmptyEntries(t *testing.T) {
	c := New(3)
	g, _ := c.Acquire("alice")
	g.Release()

	c.mu.RLock()
	_, present := c.grants["alice"]
	c.mu.RUnlock()
	if present {
		t.Error("fully released key should be removed from the grant map")
	}
}

func TestAcquire_ConcurrentNeverExceedsCap(t *testing.T) {
	const maxGrants = 2
	const attempts = 100
	c := New(maxGrants)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := c.Acquire("alice")
			if err != nil {
				return
			}
			acquired.Add(1)
			g.Release()
		}()
	}
	wg.Wait()

	if held := c.Held("alice"); held != 0 {
		t.Errorf("Held after all releases = %d, want 0", held)
	}
	if acquired.Load() == 0 {
		t.Error("no acquisition succeeded")
	}

	// The cap must hold at every instant: grab cap grants, then verify
	// the next acquisition fails.
	grants := make([]*Grant, 0, maxGrants)
	for i := 0; i < maxGrants; i++ {
		g, err := c.Acquire("alice")
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		grants = append(grants, g)
	}
	if _, err := c.Acquire("alice"); err == nil {
		t.Error("acquisition beyond cap succeeded")
	}
	for _, g := range grants {
		g.Release()
	}
}

func TestNew_NonPositiveCapDefaultsToOne(t *testing.T) {
	c := New(0)
	if c.MaxPerKey() != 1 {
		t.Fatalf("MaxPerKey = %d, want 1", c.MaxPerKey())
	}
}
