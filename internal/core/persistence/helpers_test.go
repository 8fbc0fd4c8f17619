package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldstore/pkg/encoding"
)

type testSerial uint32

type item = Entity[testSerial]

// counter is entity type "test.A".
type counter struct {
	Base[testSerial]
	x       int32
	deleted bool
}

func (c *counter) Serialize(w *encoding.Writer) error {
	w.WriteInt32(c.x)
	return nil
}

func (c *counter) Deserialize(r *encoding.Reader) error {
	v, err := r.ReadInt32()
	c.x = v
	return err
}

func (c *counter) Delete() { c.deleted = true }

// label is entity type "test.B".
type label struct {
	Base[testSerial]
	y       string
	deleted bool
}

func (l *label) Serialize(w *encoding.Writer) error {
	w.WriteString(l.y)
	return nil
}

func (l *label) Deserialize(r *encoding.Reader) error {
	v, err := r.ReadString()
	l.y = v
	return err
}

func (l *label) Delete() { l.deleted = true }

// brittle replaces "test.B" in loads that must fail to deserialize.
type brittle struct {
	Base[testSerial]
}

func (b *brittle) Serialize(*encoding.Writer) error { return nil }

func (b *brittle) Deserialize(*encoding.Reader) error { panic("boom") }

func (b *brittle) Delete() {}

// greedy records how much payload it was offered and consumes all of it.
type greedy struct {
	Base[testSerial]
	offered *[]int
}

func (g *greedy) Serialize(*encoding.Writer) error { return nil }

func (g *greedy) Deserialize(r *encoding.Reader) error {
	*g.offered = append(*g.offered, r.Remaining())
	_, err := r.Read(make([]byte, r.Remaining()))
	return err
}

func (g *greedy) Delete() {}

func newCounter(s testSerial, ref int) item { return &counter{Base: NewBase(s, ref)} }

func newLabel(s testSerial, ref int) item { return &label{Base: NewBase(s, ref)} }

func newBrittle(s testSerial, ref int) item { return &brittle{Base: NewBase(s, ref)} }

// newItems returns a fresh "Items" category. Types missing from types are
// left unregistered; a nil constructor registers the name as abstract.
func newItems(t *testing.T, types map[string]Constructor[testSerial, item]) *Category[testSerial, item] {
	t.Helper()
	cat := NewCategory[testSerial, item]("Items", 4,
		func(raw uint64) testSerial { return testSerial(raw) },
		func(s testSerial) uint64 { return uint64(s) },
	)
	for name, ctor := range types {
		if ctor == nil {
			require.NoError(t, cat.Factories.RegisterAbstract(name))
			continue
		}
		require.NoError(t, cat.Factories.Register(name, ctor))
	}
	return cat
}

func allTypes() map[string]Constructor[testSerial, item] {
	return map[string]Constructor[testSerial, item]{
		"test.A": newCounter,
		"test.B": newLabel,
	}
}

func newTestStore(t *testing.T, root string, cat *Category[testSerial, item], opts Options) *Store[testSerial, item] {
	t.Helper()
	opts.Root = root
	store, err := NewStore(NewEngine(opts), cat)
	require.NoError(t, err)
	return store
}

// seed builds A{x:1}, A{x:2}, B{y:"z"} with serials 1, 2, 3.
func seed(t *testing.T, cat *Category[testSerial, item]) *Collection[testSerial, item] {
	t.Helper()
	col := NewCollection[testSerial, item](3)

	a1, err := cat.Construct("test.A", 1)
	require.NoError(t, err)
	a1.(*counter).x = 1
	col.Add(1, a1)

	a2, err := cat.Construct("test.A", 2)
	require.NoError(t, err)
	a2.(*counter).x = 2
	col.Add(2, a2)

	b, err := cat.Construct("test.B", 3)
	require.NoError(t, err)
	b.(*label).y = "z"
	col.Add(3, b)

	return col
}
