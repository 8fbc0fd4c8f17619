package world

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/internal/core/persistence/recovery"
)

func newWorld(t *testing.T, root string, policy recovery.Policy) *World {
	t.Helper()
	w, err := New(persistence.NewEngine(persistence.Options{
		Root:           root,
		Policy:         policy,
		RetainPayloads: true,
		Atomic:         true,
	}))
	require.NoError(t, err)
	return w
}

func TestWorld_SaveLoad(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	w := newWorld(t, root, nil)
	admin, err := w.Accounts.Create("Admin", "h1", AccessOwner)
	require.NoError(t, err)
	_, err = w.Accounts.Create("player", "h2", AccessPlayer)
	require.NoError(t, err)
	order, err := w.Guilds.Create("Order of the Silver Serpent", "OSS", GuildOrder)
	require.NoError(t, err)
	order.Members = []Serial{admin.Serial()}
	_, err = w.Guilds.Create("Chaos Knights", "CK", GuildChaos)
	require.NoError(t, err)

	reports, err := w.Save(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, AccountsCategory, reports[0].Category)
	assert.Equal(t, 2, reports[0].Entities)
	assert.Equal(t, map[string]int{GuildTypeName: 2}, reports[1].Types)

	loaded := newWorld(t, root, nil)
	loadReports, err := loaded.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loadReports, 2)

	acc, ok := loaded.Accounts.Get("admin")
	require.True(t, ok)
	assert.Equal(t, admin.Serial(), acc.Serial())
	assert.Equal(t, AccessOwner, acc.AccessLevel)
	assert.Equal(t, "h1", acc.PasswordHash)
	assert.True(t, admin.Created.Equal(acc.Created))

	g, ok := loaded.Guilds.FindByAbbreviation("OSS")
	require.True(t, ok)
	assert.Equal(t, GuildOrder, g.Type)
	assert.Equal(t, []Serial{admin.Serial()}, g.Members)

	manifests, err := loaded.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, manifests[GuildsCategory].Entities)
}

func TestAccounts_CreatedBetweenSerializeAndSnapshot(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	w := newWorld(t, root, nil)
	_, err := w.Accounts.Create("alice", "h1", AccessPlayer)
	require.NoError(t, err)

	require.NoError(t, w.Accounts.Serialize(ctx))
	bob, err := w.Accounts.Create("bob", "h2", AccessGameMaster)
	require.NoError(t, err)
	report, err := w.Accounts.WriteSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Entities)

	loaded := newWorld(t, root, recovery.AlwaysAbort)
	_, err = loaded.Load(ctx)
	require.NoError(t, err)

	acc, ok := loaded.Accounts.Get("bob")
	require.True(t, ok)
	assert.Equal(t, bob.Serial(), acc.Serial())
	assert.Equal(t, AccessGameMaster, acc.AccessLevel)
	assert.Equal(t, "h2", acc.PasswordHash)
}

func TestWorld_SaveWhileCreating(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	w := newWorld(t, root, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, _ = w.Accounts.Create(fmt.Sprintf("player%03d", i), "h", AccessPlayer)
		}
	}()
	for i := 0; i < 5; i++ {
		_, err := w.Save(ctx)
		require.NoError(t, err)
	}
	<-done
	_, err := w.Save(ctx)
	require.NoError(t, err)

	loaded := newWorld(t, root, recovery.AlwaysAbort)
	_, err = loaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, loaded.Accounts.Count())
}

func TestAccounts_CreateRejectsDuplicates(t *testing.T) {
	w := newWorld(t, t.TempDir(), nil)
	_, err := w.Accounts.Create("Admin", "h", AccessOwner)
	require.NoError(t, err)

	_, err = w.Accounts.Create("ADMIN", "h", AccessPlayer)
	assert.ErrorIs(t, err, ErrAccountExists)
	_, err = w.Accounts.Create("  ", "h", AccessPlayer)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAccounts_AllocationSkipsLoadedSerials(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	w := newWorld(t, root, nil)
	for _, name := range []string{"a", "b", "c"} {
		_, err := w.Accounts.Create(name, "", AccessPlayer)
		require.NoError(t, err)
	}
	b, _ := w.Accounts.Get("b")
	b.Delete()
	assert.Equal(t, 2, w.Accounts.Count())
	_, err := w.Save(ctx)
	require.NoError(t, err)

	loaded := newWorld(t, root, nil)
	_, err = loaded.Load(ctx)
	require.NoError(t, err)

	d, err := loaded.Accounts.Create("d", "", AccessPlayer)
	require.NoError(t, err)
	assert.Equal(t, Serial(2), d.Serial())
	e, err := loaded.Accounts.Create("e", "", AccessPlayer)
	require.NoError(t, err)
	assert.Equal(t, Serial(4), e.Serial())
}

const accountsXML = `<?xml version="1.0" encoding="utf-8"?>
<accounts>
  <account>
    <username>admin</username>
    <password>secret-hash</password>
    <accessLevel>Owner</accessLevel>
    <created>2020-01-02T03:04:05Z</created>
  </account>
  <account>
    <password>orphan</password>
  </account>
  <account>
    <username>guest</username>
    <accessLevel>1</accessLevel>
  </account>
</accounts>`

func TestAccounts_LegacyXMLImport(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	dir := filepath.Join(root, AccountsCategory)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyAccounts), []byte(accountsXML), 0o644))

	w := newWorld(t, root, nil)
	reports, err := w.Load(ctx)
	require.NoError(t, err)
	assert.True(t, reports[0].Legacy)
	assert.Equal(t, 2, w.Accounts.Count())

	admin, ok := w.Accounts.Get("Admin")
	require.True(t, ok)
	assert.Equal(t, Serial(1), admin.Serial())
	assert.Equal(t, "secret-hash", admin.PasswordHash)
	assert.Equal(t, AccessOwner, admin.AccessLevel)
	assert.Equal(t, 2020, admin.Created.Year())

	guest, ok := w.Accounts.Get("guest")
	require.True(t, ok)
	assert.Equal(t, AccessCounselor, guest.AccessLevel)

	_, err = w.Save(ctx)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, legacyAccounts+".imported"))
	require.NoError(t, err)

	reloaded := newWorld(t, root, nil)
	reports, err = reloaded.Load(ctx)
	require.NoError(t, err)
	assert.False(t, reports[0].Legacy)
	_, ok = reloaded.Accounts.Get("guest")
	assert.True(t, ok)
}

func TestAccounts_LegacyXMLWithoutRoot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, AccountsCategory)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyAccounts), []byte("<users><user/></users>"), 0o644))

	w := newWorld(t, root, nil)
	_, err := w.Load(context.Background())
	assert.ErrorIs(t, err, ErrBadLegacyFile)
}

// saveAbstractGuild stores one regular guild and one entry typed as the
// abstract base guild.
func saveAbstractGuild(t *testing.T, root string) {
	t.Helper()
	w := newWorld(t, root, nil)
	_, err := w.Guilds.Create("Real", "R", GuildRegular)
	require.NoError(t, err)

	ref := w.Guilds.category.Types.Resolve(BaseGuildTypeName)
	ghost := &Guild{Base: persistence.NewBase(Serial(99), ref), Name: "Ghost"}
	w.Guilds.byID.Add(ghost.Serial(), ghost)

	_, err = w.Save(context.Background())
	require.NoError(t, err)
}

func TestGuilds_AbstractTypeIsUnresolvable(t *testing.T) {
	t.Run("skip", func(t *testing.T) {
		root := t.TempDir()
		saveAbstractGuild(t, root)

		w := newWorld(t, root, recovery.AlwaysSkip)
		reports, err := w.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{BaseGuildTypeName}, reports[1].DroppedTypes)
		assert.Equal(t, 1, w.Guilds.Count())
		_, ok := w.Guilds.Find(99)
		assert.False(t, ok)
	})

	t.Run("abort", func(t *testing.T) {
		root := t.TempDir()
		saveAbstractGuild(t, root)

		w := newWorld(t, root, recovery.AlwaysAbort)
		_, err := w.Load(context.Background())
		assert.ErrorIs(t, err, persistence.ErrUnresolvableType)
		assert.Contains(t, err.Error(), "marked abstract")
		assert.Zero(t, w.Guilds.Count())
	})
}

func TestGuilds_SearchAndDelete(t *testing.T) {
	w := newWorld(t, t.TempDir(), nil)
	a, err := w.Guilds.Create("Silver Serpent", "SS", GuildRegular)
	require.NoError(t, err)
	_, err = w.Guilds.Create("Golden Serpent", "GS", GuildRegular)
	require.NoError(t, err)

	assert.Len(t, w.Guilds.Search("serpent"), 2)
	assert.Len(t, w.Guilds.Search("SERPENT silver"), 1)
	assert.Empty(t, w.Guilds.Search("dragon"))

	a.Delete()
	assert.True(t, a.Disbanded())
	_, ok := w.Guilds.FindByName("Silver Serpent")
	assert.False(t, ok)
	assert.Equal(t, 1, w.Guilds.Count())
}

func TestParseHelpers(t *testing.T) {
	level, err := ParseAccessLevel("gamemaster")
	require.NoError(t, err)
	assert.Equal(t, AccessGameMaster, level)
	_, err = ParseAccessLevel("9")
	assert.Error(t, err)

	gt, err := ParseGuildType("chaos")
	require.NoError(t, err)
	assert.Equal(t, GuildChaos, gt)
	_, err = ParseGuildType("neutral")
	assert.Error(t, err)
}
