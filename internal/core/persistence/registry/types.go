// Package registry maps entity type names to per-instance TypeRefs and to
// the constructors used to rebuild entity shells at load time.
package registry

import "sync"

// Types is the ordered, append-only type list of one category instance. The
// position of a name is its TypeRef for the lifetime of the instance.
type Types struct {
	mu    sync.RWMutex
	names []string
	index map[string]int
}

func NewTypes() *Types {
	return &Types{index: make(map[string]int)}
}

// Resolve returns the TypeRef for name, appending it on first sight.
func (t *Types) Resolve(name string) int {
	t.mu.RLock()
	ref, ok := t.index[name]
	t.mu.RUnlock()
	if ok {
		return ref
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ref, ok = t.index[name]; ok {
		return ref
	}
	ref = len(t.names)
	t.names = append(t.names, name)
	t.index[name] = ref
	return ref
}

// Lookup returns the TypeRef for name without registering it.
func (t *Types) Lookup(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ref, ok := t.index[name]
	return ref, ok
}

// Name returns the type name registered under ref.
func (t *Types) Name(ref int) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if ref < 0 || ref >= len(t.names) {
		return "", false
	}
	return t.names[ref], true
}

// Names returns a copy of the list in registration order.
func (t *Types) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (t *Types) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// Reset empties the list.
func (t *Types) Reset() {
	t.mu.Lock()
	t.names = nil
	t.index = make(map[string]int)
	t.mu.Unlock()
}
