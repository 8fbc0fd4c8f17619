package persistence

import (
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/observability/log"
)

// Store binds one category to an Engine and runs its save and load
// pipelines.
type Store[S comparable, E Entity[S]] struct {
	engine   *Engine
	category *Category[S, E]
	logger   log.Log
	state    atomic.Int32

	// serialized holds the serials filled by the last Serialize pass. The
	// next snapshot serializes any entity outside it before writing.
	mu         sync.Mutex
	serialized map[S]struct{}
}

func NewStore[S comparable, E Entity[S]](engine *Engine, category *Category[S, E]) (*Store[S, E], error) {
	if err := category.validate(); err != nil {
		return nil, err
	}
	return &Store[S, E]{
		engine:   engine,
		category: category,
		logger:   engine.logger.With(log.Category(category.Name)),
	}, nil
}

func (s *Store[S, E]) Category() *Category[S, E] { return s.category }

// Layout is where the category's files live.
func (s *Store[S, E]) Layout() Layout {
	return CategoryLayout(s.engine.opts.Root, s.category.Name)
}

// lock takes the category lock and repairs an interrupted atomic save
// before the caller touches the files.
func (s *Store[S, E]) lock() (func(), error) {
	unlock, err := lockCategory(s.engine.opts.Root, s.category.Name, s.engine.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	rec, err := recoverSwap(s.engine.opts.Root, s.category.Name)
	if err != nil {
		unlock()
		return nil, eris.Wrapf(err, "recover interrupted save of %s", s.category.Name)
	}
	switch rec.Action {
	case "":
	case "cleaned":
		s.logger.Info("removed leftovers of an interrupted save")
	default:
		s.logger.Warn("recovered interrupted save",
			log.String("action", rec.Action),
			log.String("from", rec.From),
		)
	}
	return unlock, nil
}

// Verify checks the files against the manifest of the last save.
func (s *Store[S, E]) Verify() (*Manifest, error) {
	return VerifyLayout(s.Layout())
}
