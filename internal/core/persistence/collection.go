package persistence

import "iter"

type slot[S comparable, E any] struct {
	serial S
	entity E
	live   bool
}

// Collection is an insertion-ordered identifier -> entity map. Saves visit
// entities in this order and loads insert them in file order, so a reloaded
// collection iterates exactly like the one that was saved.
type Collection[S comparable, E any] struct {
	slots []slot[S, E]
	index map[S]int
	dead  int
}

func NewCollection[S comparable, E any](capacity int) *Collection[S, E] {
	return &Collection[S, E]{
		slots: make([]slot[S, E], 0, capacity),
		index: make(map[S]int, capacity),
	}
}

// Add inserts or replaces; a replaced entity keeps its original position.
func (c *Collection[S, E]) Add(serial S, entity E) {
	if i, ok := c.index[serial]; ok {
		c.slots[i].entity = entity
		return
	}
	c.index[serial] = len(c.slots)
	c.slots = append(c.slots, slot[S, E]{serial: serial, entity: entity, live: true})
}

func (c *Collection[S, E]) Remove(serial S) bool {
	i, ok := c.index[serial]
	if !ok {
		return false
	}
	delete(c.index, serial)
	c.slots[i] = slot[S, E]{}
	c.dead++
	if c.dead > 32 && c.dead*2 > len(c.slots) {
		c.compact()
	}
	return true
}

func (c *Collection[S, E]) compact() {
	live := c.slots[:0]
	for _, s := range c.slots {
		if s.live {
			c.index[s.serial] = len(live)
			live = append(live, s)
		}
	}
	clear(c.slots[len(live):])
	c.slots = live
	c.dead = 0
}

func (c *Collection[S, E]) Get(serial S) (E, bool) {
	i, ok := c.index[serial]
	if !ok {
		var zero E
		return zero, false
	}
	return c.slots[i].entity, true
}

func (c *Collection[S, E]) Has(serial S) bool {
	_, ok := c.index[serial]
	return ok
}

func (c *Collection[S, E]) Len() int { return len(c.index) }

// All iterates live entries in insertion order.
func (c *Collection[S, E]) All() iter.Seq2[S, E] {
	return func(yield func(S, E) bool) {
		for _, s := range c.slots {
			if s.live && !yield(s.serial, s.entity) {
				return
			}
		}
	}
}

// Values snapshots live entities in insertion order.
func (c *Collection[S, E]) Values() []E {
	out := make([]E, 0, c.Len())
	for _, s := range c.slots {
		if s.live {
			out = append(out, s.entity)
		}
	}
	return out
}
