package world

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/internal/core/persistence/serial"
)

const (
	AccountsCategory = "Accounts"
	legacyAccounts   = "accounts.xml"
)

// Accounts is the account registry, indexed by serial and by username.
// Usernames compare case-insensitively.
type Accounts struct {
	mu       sync.RWMutex
	byID     *persistence.Collection[Serial, *Account]
	byName   map[string]*Account
	alloc    *serial.Allocator[Serial]
	category *persistence.Category[Serial, *Account]
	store    *persistence.Store[Serial, *Account]
	logger   log.Log
}

func NewAccounts(engine *persistence.Engine) (*Accounts, error) {
	a := &Accounts{
		byID:   persistence.NewCollection[Serial, *Account](32),
		byName: make(map[string]*Account, 32),
		logger: engine.Logger().With(log.Category(AccountsCategory)),
	}
	a.alloc = newAllocator(func(s Serial) bool { return a.byID.Has(s) })

	a.category = persistence.NewCategory[Serial, *Account](AccountsCategory, SerialWidth, serialFromRaw, serialToRaw)
	if err := a.category.Factories.Register(AccountTypeName, a.shell); err != nil {
		return nil, err
	}
	a.category.Legacy = &persistence.Legacy[Serial, *Account]{
		FileName: legacyAccounts,
		Import:   a.importXML,
	}

	store, err := persistence.NewStore(engine, a.category)
	if err != nil {
		return nil, err
	}
	a.store = store
	return a, nil
}

func (a *Accounts) shell(s Serial, typeRef int) *Account {
	return &Account{Base: persistence.NewBase(s, typeRef), accounts: a}
}

func nameKey(username string) string { return strings.ToLower(username) }

// Create allocates a serial and registers a new account.
func (a *Accounts) Create(username, passwordHash string, level AccessLevel) (*Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, eris.Wrap(ErrInvalidName, "empty username")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byName[nameKey(username)]; ok {
		return nil, eris.Wrapf(ErrAccountExists, "username %q", username)
	}
	s, err := a.alloc.Next()
	if err != nil {
		return nil, eris.Wrap(err, "allocate account serial")
	}
	acc, err := a.category.Construct(AccountTypeName, s)
	if err != nil {
		return nil, err
	}
	acc.Username = username
	acc.PasswordHash = passwordHash
	acc.AccessLevel = level
	acc.Created = time.Now().UTC()

	a.byID.Add(s, acc)
	a.byName[nameKey(username)] = acc
	return acc, nil
}

// Get finds an account by username.
func (a *Accounts) Get(username string) (*Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byName[nameKey(username)]
	return acc, ok
}

// Find finds an account by serial.
func (a *Accounts) Find(s Serial) (*Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.byID.Get(s)
}

func (a *Accounts) Remove(acc *Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.byID.Get(acc.Serial()); ok && cur == acc {
		a.byID.Remove(acc.Serial())
	}
	if cur, ok := a.byName[nameKey(acc.Username)]; ok && cur == acc {
		delete(a.byName, nameKey(acc.Username))
	}
}

func (a *Accounts) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.byID.Len()
}

// All snapshots the accounts in creation order.
func (a *Accounts) All() []*Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.byID.Values()
}

func (a *Accounts) Name() string { return AccountsCategory }

func (a *Accounts) Store() *persistence.Store[Serial, *Account] { return a.store }

func (a *Accounts) Serialize(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.serialize(ctx)
}

func (a *Accounts) WriteSnapshot(ctx context.Context) (*persistence.SaveReport, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.writeSnapshot(ctx)
}

// freeze holds the registry still until the returned func is called.
func (a *Accounts) freeze() func() {
	a.mu.Lock()
	return a.mu.Unlock
}

func (a *Accounts) serialize(ctx context.Context) error {
	return a.store.Serialize(ctx, a.byID)
}

func (a *Accounts) writeSnapshot(ctx context.Context) (*persistence.SaveReport, error) {
	return a.store.WriteSnapshot(ctx, a.byID)
}

// Load replaces the registry with the stored accounts and rebuilds the
// username index.
func (a *Accounts) Load(ctx context.Context) (*persistence.LoadReport, error) {
	res, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.byID = res.Entities
	a.byName = make(map[string]*Account, res.Entities.Len())
	for _, acc := range res.Entities.Values() {
		key := nameKey(acc.Username)
		if prev, ok := a.byName[key]; ok {
			a.logger.Warn("duplicate username",
				log.String("username", acc.Username),
				log.String("kept", prev.Serial().String()),
				log.String("shadowed", acc.Serial().String()),
			)
			continue
		}
		a.byName[key] = acc
	}
	a.alloc.Reset(0)
	return res.Report, nil
}

func (a *Accounts) Verify() (*persistence.Manifest, error) {
	return a.store.Verify()
}
