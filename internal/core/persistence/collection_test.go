package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollection_KeepsInsertionOrder(t *testing.T) {
	col := NewCollection[int, string](0)
	col.Add(3, "c")
	col.Add(1, "a")
	col.Add(2, "b")
	col.Add(1, "A")

	assert.Equal(t, []string{"c", "A", "b"}, col.Values())
	assert.Equal(t, 3, col.Len())

	var keys []int
	for k := range col.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []int{3, 1, 2}, keys)
}

func TestCollection_RemoveAndCompact(t *testing.T) {
	col := NewCollection[int, int](0)
	for i := 0; i < 100; i++ {
		col.Add(i, i)
	}
	for i := 0; i < 80; i++ {
		assert.True(t, col.Remove(i))
	}
	assert.False(t, col.Remove(0))
	assert.Equal(t, 20, col.Len())
	assert.Less(t, len(col.slots), 100)

	v, ok := col.Get(95)
	assert.True(t, ok)
	assert.Equal(t, 95, v)
	assert.False(t, col.Has(10))

	col.Add(7, 7)
	values := col.Values()
	assert.Equal(t, 80, values[0])
	assert.Equal(t, 7, values[len(values)-1])
}
