package engine

// ShortRegistry is a removable ordered set of addresses currently net
// short, backed by a slice plus a 1-based reverse index (0 = absent).
// Removal swaps the last element into the vacated slot, so every
// operation is O(1) at the cost of not preserving full historical order.
// Only the "current tail = most recently (re-)registered" property is
// relied on: the tail is assigned first on exercise.
type ShortRegistry struct {
	addrs []string
	index map[string]int
}

// NewShortRegistry creates an empty registry.
func NewShortRegistry() *ShortRegistry {
	return &ShortRegistry{index: make(map[string]int)}
}

// Insert appends addr to the registry. No-op if already present.
func (r *ShortRegistry) Insert(addr string) {
	if r.index[addr] != 0 {
		return
	}
	r.addrs = append(r.addrs, addr)
	r.index[addr] = len(r.addrs)
}

// Remove deletes addr from the registry. No-op if absent. If addr is not
// in the last slot, the last element is moved into its place and the
// moved element's index updated.
func (r *ShortRegistry) Remove(addr string) {
	slot := r.index[addr]
	if slot == 0 {
		return
	}
	last := len(r.addrs)
	if slot != last {
		moved := r.addrs[last-1]
		r.addrs[slot-1] = moved
		r.index[moved] = slot
	}
	r.addrs = r.addrs[:last-1]
	delete(r.index, addr)
}

// Contains reports whether addr is registered.
func (r *ShortRegistry) Contains(addr string) bool {
	return r.index[addr] != 0
}

// PeekLast returns the most recently (re-)registered address without
// removing it. ok is false when the registry is empty.
func (r *ShortRegistry) PeekLast() (addr string, ok bool) {
	if len(r.addrs) == 0 {
		return "", false
	}
	return r.addrs[len(r.addrs)-1], true
}

// PopLast removes and returns the tail address.
func (r *ShortRegistry) PopLast() (addr string, ok bool) {
	addr, ok = r.PeekLast()
	if ok {
		r.Remove(addr)
	}
	return addr, ok
}

// Len returns the number of registered shorts.
func (r *ShortRegistry) Len() int {
	return len(r.addrs)
}

// Addresses returns a copy of the registry in slot order.
func (r *ShortRegistry) Addresses() []string {
	out := make([]string, len(r.addrs))
	copy(out, r.addrs)
	return out
}
