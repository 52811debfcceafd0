package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

var lockInstant = time.UnixMilli(1700000000000)

// seedPopulation installs a small reconciled population directly in the
// cache: alice in eng, member of staff.
func seedPopulation(e *Engine) *model.User {
	alice := &model.User{
		ID:      "alice",
		DN:      "uid=alice,ou=eng," + peopleBase,
		Company: "eng",
		Groups:  []string{"staff"},
		Secured: true,
	}
	e.cache.Refresh(
		map[string]*model.User{"alice": alice},
		map[string]*model.Group{
			"staff": {ID: "staff", DN: "cn=staff," + groupBase, Members: []string{"alice"}},
		},
		map[string]*model.Company{
			"eng": {ID: "eng", DN: "ou=eng," + peopleBase, Tree: []string{"eng"}},
			"ops": {ID: "ops", DN: "ou=ops," + peopleBase, Tree: []string{"ops"}},
		},
	)
	return alice
}

func TestLock(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	e.now = func() time.Time { return lockInstant }
	alice := seedPopulation(e)

	require.NoError(t, e.Lock(context.Background(), "admin", alice))

	assert.True(t, alice.IsLocked())
	assert.Equal(t, lockInstant, alice.Locked)
	assert.Equal(t, "admin", alice.LockedBy)
	assert.False(t, alice.Secured)

	mod := store.lastMod(t)
	assert.Equal(t, alice.DN, mod.DN)
	require.Len(t, mod.Mods, 2)
	assert.Equal(t, directory.Mod{Op: directory.ModReplace, Name: "employeeType", Values: []string{"LOCKED|1700000000000|admin||"}}, mod.Mods[0])
	// The credential clears in the same update.
	assert.Equal(t, directory.Mod{Op: directory.ModReplace, Name: "userPassword"}, mod.Mods[1])
}

func TestLockAlreadyLockedIsNoop(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	alice := seedPopulation(e)
	alice.Locked = lockInstant
	alice.LockedBy = "admin"

	require.NoError(t, e.Lock(context.Background(), "other", alice))

	assert.Empty(t, store.mods)
	assert.Equal(t, "admin", alice.LockedBy)
}

func TestIsolate(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	e.now = func() time.Time { return lockInstant }
	alice := seedPopulation(e)

	require.NoError(t, e.Isolate(context.Background(), "admin", alice))

	assert.True(t, alice.IsLocked())
	assert.Equal(t, "eng", alice.Isolated)
	assert.Equal(t, "quarantine", alice.Company)
	assert.Equal(t, "uid=alice,"+quarantineBase, alice.DN)

	// The lock record carries the previous company.
	require.NotEmpty(t, store.mods)
	assert.Equal(t, []string{"LOCKED|1700000000000|admin|eng|"}, store.mods[0].Mods[0].Values)

	require.Len(t, store.renames, 1)
	assert.Equal(t, "uid=alice,ou=eng,"+peopleBase, store.renames[0].Old)
	assert.Equal(t, "uid=alice,"+quarantineBase, store.renames[0].New)

	// The staff membership tracked the relocation: new reference added,
	// old one removed.
	var added, removed bool
	for _, mod := range store.mods {
		if mod.DN != "cn=staff,"+groupBase {
			continue
		}
		for _, m := range mod.Mods {
			if m.Op == directory.ModAdd && m.Values[0] == alice.DN {
				added = true
			}
			if m.Op == directory.ModDelete && m.Values[0] == "uid=alice,ou=eng,"+peopleBase {
				removed = true
			}
		}
	}
	assert.True(t, added)
	assert.True(t, removed)
}

func TestIsolateTwiceIsNoop(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	e.now = func() time.Time { return lockInstant }
	alice := seedPopulation(e)

	require.NoError(t, e.Isolate(context.Background(), "admin", alice))
	renames := len(store.renames)

	require.NoError(t, e.Isolate(context.Background(), "admin", alice))

	assert.Len(t, store.renames, renames)
	assert.Equal(t, "eng", alice.Isolated)
}

func TestRestore(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	e.now = func() time.Time { return lockInstant }
	alice := seedPopulation(e)
	require.NoError(t, e.Isolate(context.Background(), "admin", alice))

	require.NoError(t, e.Restore(context.Background(), alice))

	assert.Equal(t, "eng", alice.Company)
	assert.Equal(t, "uid=alice,ou=eng,"+peopleBase, alice.DN)
	assert.Empty(t, alice.Isolated)
	assert.False(t, alice.IsLocked())

	// The final directory write removes the lock attribute entirely.
	mod := store.lastMod(t)
	require.Len(t, mod.Mods, 1)
	assert.Equal(t, directory.ModDelete, mod.Mods[0].Op)
	assert.Equal(t, "employeeType", mod.Mods[0].Name)
	assert.Empty(t, mod.Mods[0].Values)
}

func TestRestoreNotIsolatedIsNoop(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	alice := seedPopulation(e)

	require.NoError(t, e.Restore(context.Background(), alice))

	assert.Empty(t, store.renames)
	assert.Empty(t, store.mods)
}

func TestRestoreUnknownPreviousCompany(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	alice := seedPopulation(e)
	alice.Locked = lockInstant
	alice.LockedBy = "admin"
	alice.Isolated = "defunct"

	err := e.Restore(context.Background(), alice)

	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.renames)
}

func TestUnlockWhileIsolatedIsNoop(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	e.now = func() time.Time { return lockInstant }
	alice := seedPopulation(e)
	require.NoError(t, e.Isolate(context.Background(), "admin", alice))
	mods := len(store.mods)

	require.NoError(t, e.Unlock(context.Background(), alice))

	assert.Len(t, store.mods, mods)
	assert.True(t, alice.IsLocked())
}

func TestUnlockActiveUserIsNoop(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	alice := seedPopulation(e)

	require.NoError(t, e.Unlock(context.Background(), alice))

	assert.Empty(t, store.mods)
}

func TestMove(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)
	alice := seedPopulation(e)
	ops := e.cache.Company("ops")

	require.NoError(t, e.Move(context.Background(), alice, ops))

	assert.Equal(t, "ops", alice.Company)
	assert.Equal(t, "uid=alice,ou=ops,"+peopleBase, alice.DN)
	require.Len(t, store.renames, 1)
	assert.Equal(t, renameCall{
		Old: "uid=alice,ou=eng," + peopleBase,
		New: "uid=alice,ou=ops," + peopleBase,
	}, store.renames[0])
}
