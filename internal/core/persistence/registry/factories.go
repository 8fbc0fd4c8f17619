package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrTypeNotFound = errors.New("type not found")
	ErrTypeAbstract = errors.New("type marked abstract")
	ErrDuplicate    = errors.New("type already registered")
)

type factory[F any] struct {
	ctor     F
	abstract bool
}

// Factories is the compile-time table of constructible entity types of one
// category, keyed by fully-qualified type name. F is the category's shell
// constructor signature.
type Factories[F any] struct {
	mu      sync.RWMutex
	entries map[string]factory[F]
}

func NewFactories[F any]() *Factories[F] {
	return &Factories[F]{entries: make(map[string]factory[F])}
}

// Register adds a constructible type.
func (f *Factories[F]) Register(name string, ctor F) error {
	return f.add(name, factory[F]{ctor: ctor})
}

// RegisterAbstract records a type that exists but can never be built.
func (f *Factories[F]) RegisterAbstract(name string) error {
	return f.add(name, factory[F]{abstract: true})
}

func (f *Factories[F]) add(name string, entry factory[F]) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	f.entries[name] = entry
	return nil
}

// Lookup returns the constructor for name, or ErrTypeNotFound /
// ErrTypeAbstract.
func (f *Factories[F]) Lookup(name string) (F, error) {
	f.mu.RLock()
	entry, ok := f.entries[name]
	f.mu.RUnlock()

	var zero F
	switch {
	case !ok:
		return zero, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	case entry.abstract:
		return zero, fmt.Errorf("%w: %s", ErrTypeAbstract, name)
	}
	return entry.ctor, nil
}

// Names lists registered type names in lexical order.
func (f *Factories[F]) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.entries))
	for name := range f.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
