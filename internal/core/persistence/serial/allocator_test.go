package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSerial uint32

func newTestAllocator(max uint64, used map[testSerial]bool) *Allocator[testSerial] {
	return NewAllocator(Config[testSerial]{
		Max:     max,
		FromRaw: func(v uint64) testSerial { return testSerial(v) },
		InUse:   func(s testSerial) bool { return used[s] },
	})
}

func TestAllocator_SkipsUsed(t *testing.T) {
	used := map[testSerial]bool{1: true, 2: true, 4: true}
	a := newTestAllocator(10, used)

	s, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, testSerial(3), s)

	used[s] = true
	s, err = a.Next()
	require.NoError(t, err)
	assert.Equal(t, testSerial(5), s)
}

func TestAllocator_Wraps(t *testing.T) {
	used := map[testSerial]bool{}
	a := newTestAllocator(3, used)
	a.Reset(3)
	used[3] = true

	s, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, testSerial(1), s)
}

func TestAllocator_Exhausted(t *testing.T) {
	used := map[testSerial]bool{1: true, 2: true, 3: true, 4: true}
	a := newTestAllocator(4, used)

	_, err := a.Next()
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestAllocator_FreedSerialIsReused(t *testing.T) {
	used := map[testSerial]bool{}
	a := newTestAllocator(2, used)

	first, _ := a.Next()
	used[first] = true
	second, _ := a.Next()
	used[second] = true

	delete(used, first)
	third, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, uint64(first), a.Last())
}
