package engine_test

import (
	"testing"

	"github.com/optclear/clearing-engine/internal/engine"
)

func TestRegistry_InsertAndContains(t *testing.T) {
	r := engine.NewShortRegistry()

	r.Insert("a")
	r.Insert("b")
	r.Insert("a") // duplicate is a no-op

	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", r.Len())
	}
	if !r.Contains("a") || !r.Contains("b") {
		t.Error("expected a and b to be registered")
	}
	if r.Contains("c") {
		t.Error("c should not be registered")
	}
}

func TestRegistry_PeekLastIsMostRecent(t *testing.T) {
	r := engine.NewShortRegistry()
	r.Insert("a")
	r.Insert("b")
	r.Insert("c")

	addr, ok := r.PeekLast()
	if !ok || addr != "c" {
		t.Fatalf("expected tail c, got %q ok=%v", addr, ok)
	}
	// Peek does not remove.
	if r.Len() != 3 {
		t.Errorf("peek should not remove, len=%d", r.Len())
	}
}

func TestRegistry_RemoveTail(t *testing.T) {
	r := engine.NewShortRegistry()
	r.Insert("a")
	r.Insert("b")

	r.Remove("b")

	if r.Contains("b") {
		t.Error("b should be removed")
	}
	addr, _ := r.PeekLast()
	if addr != "a" {
		t.Errorf("expected tail a, got %q", addr)
	}
}

func TestRegistry_RemoveMiddleSwapsLast(t *testing.T) {
	r := engine.NewShortRegistry()
	r.Insert("a")
	r.Insert("b")
	r.Insert("c")

	r.Remove("a")

	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", r.Len())
	}
	// c moved into a's slot; b is now the tail.
	addrs := r.Addresses()
	if addrs[0] != "c" || addrs[1] != "b" {
		t.Errorf("expected [c b] after swap removal, got %v", addrs)
	}
	// The moved element must stay reachable through the index.
	r.Remove("c")
	if r.Contains("c") {
		t.Error("c should be removable after being swapped")
	}
	if addr, _ := r.PeekLast(); addr != "b" {
		t.Errorf("expected tail b, got %q", addr)
	}
}

func TestRegistry_RemoveAbsentIsNoop(t *testing.T) {
	r := engine.NewShortRegistry()
	r.Insert("a")

	r.Remove("zzz")

	if r.Len() != 1 || !r.Contains("a") {
		t.Error("removing an absent address must not disturb the registry")
	}
}

func TestRegistry_PopLast(t *testing.T) {
	r := engine.NewShortRegistry()

	if _, ok := r.PopLast(); ok {
		t.Error("pop on empty registry should report !ok")
	}

	r.Insert("a")
	r.Insert("b")

	addr, ok := r.PopLast()
	if !ok || addr != "b" {
		t.Fatalf("expected pop b, got %q ok=%v", addr, ok)
	}
	if r.Contains("b") || r.Len() != 1 {
		t.Error("pop should remove the tail")
	}
}

func TestRegistry_ReinsertGoesToTail(t *testing.T) {
	r := engine.NewShortRegistry()
	r.Insert("a")
	r.Insert("b")
	r.Remove("a")
	r.Insert("a")

	if addr, _ := r.PeekLast(); addr != "a" {
		t.Errorf("re-registered address should be the new tail, got %q", addr)
	}
}
