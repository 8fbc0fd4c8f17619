package persistence

import (
	"context"
	"fmt"

	"github.com/zeusync/worldstore/internal/core/persistence/registry"
)

// Constructor builds an entity shell from its identifier. The shell receives
// the TypeRef of its type in the owning category's registry.
type Constructor[S comparable, E Entity[S]] func(serial S, typeRef int) E

// Legacy routes a category to a single-document importer when FileName is
// present in the category directory.
type Legacy[S comparable, E Entity[S]] struct {
	FileName string
	Import   func(ctx context.Context, path string, category *Category[S, E]) (*Collection[S, E], error)
}

// Category describes one group of entities persisted as an
// .idx/.tdb/.bin triple. Each Category owns its type registry; two instances
// with the same name never share TypeRefs.
type Category[S comparable, E Entity[S]] struct {
	Name string
	// SerialWidth is the on-disk identifier width in bytes: 4 or 8.
	SerialWidth int
	FromRaw     func(raw uint64) S
	ToRaw       func(serial S) uint64

	Factories *registry.Factories[Constructor[S, E]]
	Types     *registry.Types
	Legacy    *Legacy[S, E]
}

// NewCategory returns a descriptor with empty registries.
func NewCategory[S comparable, E Entity[S]](name string, width int, fromRaw func(uint64) S, toRaw func(S) uint64) *Category[S, E] {
	return &Category[S, E]{
		Name:        name,
		SerialWidth: width,
		FromRaw:     fromRaw,
		ToRaw:       toRaw,
		Factories:   registry.NewFactories[Constructor[S, E]](),
		Types:       registry.NewTypes(),
	}
}

func (c *Category[S, E]) validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil", ErrInvalidCategory)
	case c.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidCategory)
	case c.SerialWidth != 4 && c.SerialWidth != 8:
		return fmt.Errorf("%w: %s has serial width %d", ErrInvalidCategory, c.Name, c.SerialWidth)
	case c.FromRaw == nil || c.ToRaw == nil:
		return fmt.Errorf("%w: %s lacks serial conversions", ErrInvalidCategory, c.Name)
	case c.Factories == nil || c.Types == nil:
		return fmt.Errorf("%w: %s lacks registries", ErrInvalidCategory, c.Name)
	}
	return nil
}

// Construct builds an entity of the named type. Fresh entities and shells
// rebuilt from disk both go through here, so TypeRefs are assigned on first
// sight in construction order.
func (c *Category[S, E]) Construct(typeName string, serial S) (E, error) {
	ctor, err := c.Factories.Lookup(typeName)
	if err != nil {
		var zero E
		return zero, err
	}
	return ctor(serial, c.Types.Resolve(typeName)), nil
}

// TypeName returns the registered name of e's type.
func (c *Category[S, E]) TypeName(e E) string {
	name, ok := c.Types.Name(e.TypeRef())
	if !ok {
		return fmt.Sprintf("<typeref %d>", e.TypeRef())
	}
	return name
}

func (c *Category[S, E]) serialString(s S) string {
	return fmt.Sprintf("0x%X", c.ToRaw(s))
}
