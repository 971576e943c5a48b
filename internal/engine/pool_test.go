package engine

import "testing"

type poolItem struct {
	value int
}

func newItemPool(capacity int) *Pool[poolItem] {
	return NewPool[poolItem](capacity, func(it *poolItem) { *it = poolItem{} })
}

func TestPoolAcquireRelease(t *testing.T) {
	p := newItemPool(4)

	h, it := p.Acquire()
	it.value = 99
	if p.InUse() != 1 {
		t.Fatalf("InUse = %d, want 1", p.InUse())
	}
	if got := p.Get(h); got == nil || got.value != 99 {
		t.Fatal("Get did not return the acquired item")
	}

	if !p.Release(h) {
		t.Fatal("Release rejected a live handle")
	}
	if p.InUse() != 0 {
		t.Fatalf("InUse = %d after release, want 0", p.InUse())
	}
	if p.Get(h) != nil {
		t.Error("stale handle still resolves after release")
	}
}

func TestPoolResetOnRelease(t *testing.T) {
	p := newItemPool(2)

	h, it := p.Acquire()
	it.value = 7
	p.Release(h)

	_, it2 := p.Acquire()
	if it2.value != 0 {
		t.Errorf("recycled item carries stale value %d", it2.value)
	}
}

func TestPoolDoubleReleaseRejected(t *testing.T) {
	p := newItemPool(4)

	h, _ := p.Acquire()
	if !p.Release(h) {
		t.Fatal("first release failed")
	}
	if p.Release(h) {
		t.Error("double release was accepted")
	}

	_, _, _, doubles := p.Stats()
	if doubles != 1 {
		t.Errorf("doubleReleases = %d, want 1", doubles)
	}
	if p.InUse() != 0 {
		t.Errorf("InUse = %d corrupted by double release, want 0", p.InUse())
	}
}

func TestPoolStaleHandleAfterReuse(t *testing.T) {
	p := newItemPool(2)

	h1, _ := p.Acquire()
	p.Release(h1)
	h2, _ := p.Acquire()

	if p.Get(h1) != nil {
		t.Error("handle from a previous generation still resolves")
	}
	if p.Get(h2) == nil {
		t.Error("current generation handle does not resolve")
	}
}

func TestPoolForceReuseWhenExhausted(t *testing.T) {
	p := newItemPool(2)

	h1, _ := p.Acquire()
	h2, _ := p.Acquire()

	// Exhausted: the next acquire evicts the oldest slot instead of failing.
	h3, it := p.Acquire()
	if it == nil {
		t.Fatal("Acquire returned nil under exhaustion")
	}
	if p.Get(h1) != nil {
		t.Error("evicted handle still resolves")
	}
	if p.Get(h2) == nil || p.Get(h3) == nil {
		t.Error("surviving handles must stay valid through forced reuse")
	}

	_, _, forced, _ := p.Stats()
	if forced != 1 {
		t.Errorf("forcedReuse = %d, want 1", forced)
	}
	if p.InUse() != 2 {
		t.Errorf("InUse = %d, want 2 at capacity", p.InUse())
	}
}

func TestPoolUtilization(t *testing.T) {
	p := newItemPool(4)

	if u := p.Utilization(); u != 0 {
		t.Errorf("empty pool utilization = %.2f, want 0", u)
	}
	p.Acquire()
	p.Acquire()
	if u := p.Utilization(); u != 0.5 {
		t.Errorf("utilization = %.2f, want 0.5", u)
	}
}
