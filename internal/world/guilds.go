package world

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/internal/core/persistence/serial"
)

const GuildsCategory = "Guilds"

type Guilds struct {
	mu       sync.RWMutex
	byID     *persistence.Collection[Serial, *Guild]
	alloc    *serial.Allocator[Serial]
	category *persistence.Category[Serial, *Guild]
	store    *persistence.Store[Serial, *Guild]
}

func NewGuilds(engine *persistence.Engine) (*Guilds, error) {
	g := &Guilds{byID: persistence.NewCollection[Serial, *Guild](32)}
	g.alloc = newAllocator(func(s Serial) bool { return g.byID.Has(s) })

	g.category = persistence.NewCategory[Serial, *Guild](GuildsCategory, SerialWidth, serialFromRaw, serialToRaw)
	if err := g.category.Factories.Register(GuildTypeName, g.shell); err != nil {
		return nil, err
	}
	if err := g.category.Factories.RegisterAbstract(BaseGuildTypeName); err != nil {
		return nil, err
	}

	store, err := persistence.NewStore(engine, g.category)
	if err != nil {
		return nil, err
	}
	g.store = store
	return g, nil
}

// shell builds a guild around a serial read from disk.
func (g *Guilds) shell(s Serial, typeRef int) *Guild {
	return &Guild{Base: persistence.NewBase(s, typeRef), guilds: g}
}

// Create allocates a serial for a fresh guild and registers it.
func (g *Guilds) Create(name, abbreviation string, t GuildType) (*Guild, error) {
	if strings.TrimSpace(name) == "" {
		return nil, eris.Wrap(ErrInvalidName, "empty guild name")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.alloc.Next()
	if err != nil {
		return nil, eris.Wrap(err, "allocate guild serial")
	}
	guild, err := g.category.Construct(GuildTypeName, s)
	if err != nil {
		return nil, err
	}
	guild.Name = name
	guild.Abbreviation = abbreviation
	guild.Type = t
	g.byID.Add(s, guild)
	return guild, nil
}

func (g *Guilds) Find(s Serial) (*Guild, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byID.Get(s)
}

func (g *Guilds) FindByName(name string) (*Guild, bool) {
	return g.first(func(guild *Guild) bool { return guild.Name == name })
}

func (g *Guilds) FindByAbbreviation(abbreviation string) (*Guild, bool) {
	return g.first(func(guild *Guild) bool { return guild.Abbreviation == abbreviation })
}

func (g *Guilds) first(match func(*Guild) bool) (*Guild, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, guild := range g.byID.All() {
		if match(guild) {
			return guild, true
		}
	}
	return nil, false
}

// Search returns the guilds whose name contains every space-separated word
// of find, ignoring case.
func (g *Guilds) Search(find string) []*Guild {
	words := strings.Fields(strings.ToLower(find))

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Guild
	for _, guild := range g.byID.All() {
		name := strings.ToLower(guild.Name)
		all := true
		for _, w := range words {
			if !strings.Contains(name, w) {
				all = false
				break
			}
		}
		if all {
			out = append(out, guild)
		}
	}
	return out
}

func (g *Guilds) remove(guild *Guild) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.byID.Get(guild.Serial()); ok && cur == guild {
		g.byID.Remove(guild.Serial())
	}
}

func (g *Guilds) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byID.Len()
}

func (g *Guilds) All() []*Guild {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byID.Values()
}

func (g *Guilds) Name() string { return GuildsCategory }

func (g *Guilds) Store() *persistence.Store[Serial, *Guild] { return g.store }

func (g *Guilds) Serialize(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.serialize(ctx)
}

func (g *Guilds) WriteSnapshot(ctx context.Context) (*persistence.SaveReport, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.writeSnapshot(ctx)
}

// freeze holds the registry still until the returned func is called.
func (g *Guilds) freeze() func() {
	g.mu.Lock()
	return g.mu.Unlock
}

func (g *Guilds) serialize(ctx context.Context) error {
	return g.store.Serialize(ctx, g.byID)
}

func (g *Guilds) writeSnapshot(ctx context.Context) (*persistence.SaveReport, error) {
	return g.store.WriteSnapshot(ctx, g.byID)
}

func (g *Guilds) Load(ctx context.Context) (*persistence.LoadReport, error) {
	res, err := g.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.byID = res.Entities
	g.alloc.Reset(0)
	g.mu.Unlock()
	return res.Report, nil
}

func (g *Guilds) Verify() (*persistence.Manifest, error) {
	return g.store.Verify()
}
