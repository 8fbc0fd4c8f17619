// Package serial issues unique identifiers within one entity category.
package serial

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted is returned when every identifier in the range is in use.
var ErrResourceExhausted = errors.New("no serials left to allocate")

// Allocator scans forward from the last issued raw value, skipping values
// reported in use and wrapping from Max back to Min. It is not safe for
// concurrent use; callers serialize allocation per category.
type Allocator[S any] struct {
	min, max uint64
	last     uint64
	fromRaw  func(uint64) S
	inUse    func(S) bool
}

// Config describes the identifier space of one category.
type Config[S any] struct {
	// Min and Max bound the issued raw values, inclusive. Min defaults to 1
	// so the zero serial stays reserved.
	Min, Max uint64
	FromRaw  func(uint64) S
	InUse    func(S) bool
}

func NewAllocator[S any](cfg Config[S]) *Allocator[S] {
	if cfg.Min == 0 {
		cfg.Min = 1
	}
	if cfg.Max < cfg.Min {
		panic(fmt.Sprintf("serial: invalid range [%d, %d]", cfg.Min, cfg.Max))
	}
	if cfg.InUse == nil {
		cfg.InUse = func(S) bool { return false }
	}
	return &Allocator[S]{
		min:     cfg.Min,
		max:     cfg.Max,
		last:    cfg.Min - 1,
		fromRaw: cfg.FromRaw,
		inUse:   cfg.InUse,
	}
}

// Next returns the first free identifier after the last issued one.
func (a *Allocator[S]) Next() (S, error) {
	span := a.max - a.min + 1
	last := a.last

	for i := uint64(0); i < span; i++ {
		if last >= a.max || last < a.min {
			last = a.min
		} else {
			last++
		}

		candidate := a.fromRaw(last)
		if !a.inUse(candidate) {
			a.last = last
			return candidate, nil
		}
	}

	var zero S
	return zero, fmt.Errorf("%w: range [%d, %d] is full", ErrResourceExhausted, a.min, a.max)
}

// Last returns the most recently issued raw value.
func (a *Allocator[S]) Last() uint64 { return a.last }

// Reset moves the scan cursor; the next call to Next starts after last.
func (a *Allocator[S]) Reset(last uint64) { a.last = last }
