// Package persistence saves and restores entity categories as an index, a
// type table and a blob of concatenated payloads.
package persistence

import (
	"time"

	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence/recovery"
	"github.com/zeusync/worldstore/pkg/concurrent"
	"github.com/zeusync/worldstore/pkg/generic"
)

// maxPooledArena keeps one oversized payload from pinning memory in the pool.
const maxPooledArena = 16 << 20

// Options configure an Engine.
type Options struct {
	// Root is the persistence root; each category lives in Root/<Name>.
	Root string
	// Workers bounds the serialization pool; <= 0 means GOMAXPROCS.
	Workers int
	// Policy handles load-time corruption. Defaults to recovery.AlwaysAbort.
	Policy recovery.Policy
	Logger log.Log
	// Atomic writes a save into a temporary directory and swaps it in.
	Atomic bool
	// RetainPayloads lets loaded entities keep their exact payload bytes.
	RetainPayloads bool
	// VerifyChecksums checks the save manifest before each load.
	VerifyChecksums bool
	// LockTimeout is how long Save and Load wait for the category lock;
	// zero fails immediately when another process holds it.
	LockTimeout time.Duration
}

// Engine holds the settings and resources shared by every Store built on it.
type Engine struct {
	opts   Options
	logger log.Log
	policy recovery.Policy
	arenas *generic.Pool[*arena]
}

func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Policy == nil {
		opts.Policy = recovery.AlwaysAbort
	}
	opts.Workers = concurrent.Workers(opts.Workers)

	return &Engine{
		opts:   opts,
		logger: opts.Logger,
		policy: opts.Policy,
		arenas: generic.NewResettingPool(newArena, func(a *arena) {
			if cap(a.buf) > maxPooledArena {
				a.buf = nil
			}
		}),
	}
}

func (e *Engine) Root() string { return e.opts.Root }

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) Logger() log.Log { return e.logger }

// arena is the reusable payload buffer of one load session.
type arena struct {
	buf []byte
}

func newArena() *arena {
	return &arena{buf: make([]byte, 0, 4096)}
}

// take returns exactly n bytes of arena storage, growing it when needed.
func (a *arena) take(n int) []byte {
	if cap(a.buf) < n {
		size := 2 * cap(a.buf)
		if size < n {
			size = n
		}
		a.buf = make([]byte, size)
	}
	return a.buf[:n]
}
