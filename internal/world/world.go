package world

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/pkg/concurrent"
)

// category is one persisted registry of the world.
type category interface {
	Name() string
	freeze() func()
	serialize(ctx context.Context) error
	writeSnapshot(ctx context.Context) (*persistence.SaveReport, error)
	Load(ctx context.Context) (*persistence.LoadReport, error)
	Verify() (*persistence.Manifest, error)
}

// World owns every persisted category and saves or loads them together.
// Categories are independent: a failed save of one leaves the others' files
// as written.
type World struct {
	Accounts *Accounts
	Guilds   *Guilds

	engine     *persistence.Engine
	logger     log.Log
	categories []category
}

func New(engine *persistence.Engine) (*World, error) {
	accounts, err := NewAccounts(engine)
	if err != nil {
		return nil, err
	}
	guilds, err := NewGuilds(engine)
	if err != nil {
		return nil, err
	}
	return &World{
		Accounts:   accounts,
		Guilds:     guilds,
		engine:     engine,
		logger:     engine.Logger(),
		categories: []category{accounts, guilds},
	}, nil
}

func (w *World) Engine() *persistence.Engine { return w.engine }

// Categories lists category names in save order.
func (w *World) Categories() []string {
	names := make([]string, len(w.categories))
	for i, c := range w.categories {
		names[i] = c.Name()
	}
	return names
}

// Save serializes every category first and only then writes the snapshots.
// Every registry stays frozen for the whole save, so the snapshots hold
// exactly the entities that were serialized.
func (w *World) Save(ctx context.Context) ([]*persistence.SaveReport, error) {
	for _, c := range w.categories {
		defer c.freeze()()
	}

	for _, c := range w.categories {
		if err := c.serialize(ctx); err != nil {
			return nil, eris.Wrapf(err, "serialize %s", c.Name())
		}
	}

	reports := make([]*persistence.SaveReport, 0, len(w.categories))
	for _, c := range w.categories {
		report, err := c.writeSnapshot(ctx)
		if err != nil {
			return reports, eris.Wrapf(err, "write %s", c.Name())
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (w *World) Load(ctx context.Context) ([]*persistence.LoadReport, error) {
	reports := make([]*persistence.LoadReport, 0, len(w.categories))
	for _, c := range w.categories {
		report, err := c.Load(ctx)
		if err != nil {
			return reports, eris.Wrapf(err, "load %s", c.Name())
		}
		reports = append(reports, report)
	}
	w.logger.Info("world loaded",
		log.Int("accounts", w.Accounts.Count()),
		log.Int("guilds", w.Guilds.Count()),
	)
	return reports, nil
}

// Verify checks every category against its save manifest, hashing the
// categories in parallel. Categories without a manifest map to nil.
func (w *World) Verify(ctx context.Context) (map[string]*persistence.Manifest, error) {
	manifests, err := concurrent.ParallelMap(ctx, w.categories, len(w.categories),
		func(_ context.Context, c category) (*persistence.Manifest, error) {
			m, err := c.Verify()
			return m, eris.Wrapf(err, "verify %s", c.Name())
		})
	if err != nil {
		return nil, err
	}

	out := make(map[string]*persistence.Manifest, len(w.categories))
	for i, c := range w.categories {
		out[c.Name()] = manifests[i]
	}
	return out, nil
}
