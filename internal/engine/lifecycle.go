package engine

import (
	"context"
	"time"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// Lock disables an account: the encoded lock record is written and the
// credential cleared in a single directory update, then the in-memory
// state follows. Locking an already-locked user is a no-op.
func (e *Engine) Lock(ctx context.Context, principal string, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("lock", start, err) }()
	return e.lock(ctx, principal, user, false)
}

// lock implements Lock; with isolate set the record's fourth fragment
// carries the user's current company so Restore can find the way back.
func (e *Engine) lock(ctx context.Context, principal string, user *model.User, isolate bool) error {
	if user.IsLocked() {
		return nil
	}

	at := e.now()
	previousCompany := ""
	if isolate {
		previousCompany = user.Company
	}
	mods := []directory.Mod{
		{Op: directory.ModReplace, Name: e.cfg.Lock.Attribute, Values: []string{e.encodeLockRecord(principal, previousCompany, at)}},
		{Op: directory.ModReplace, Name: credentialAttribute},
	}
	if err := e.store.Modify(ctx, user.DN, mods); err != nil {
		return err
	}

	user.Locked = at
	user.LockedBy = principal
	user.Secured = false
	e.cache.UpdateUser(user)
	return nil
}

// Isolate locks the user with the isolation flag and relocates it to the
// quarantine organizational unit, remembering the company it came from.
// Isolating an already-isolated user is a no-op.
func (e *Engine) Isolate(ctx context.Context, principal string, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("isolate", start, err) }()

	if user.IsIsolated() {
		return nil
	}
	if err = e.lock(ctx, principal, user, true); err != nil {
		return err
	}
	previousCompany := user.Company
	if err = e.Move(ctx, user, e.QuarantineCompany()); err != nil {
		return err
	}
	user.Isolated = previousCompany
	e.cache.UpdateUser(user)
	return nil
}

// Restore relocates an isolated user back to its previous company,
// clears the isolation marker and unlocks. A non-isolated user is left
// untouched.
func (e *Engine) Restore(ctx context.Context, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("restore", start, err) }()

	if !user.IsIsolated() {
		return nil
	}
	company, err := e.company(user.Isolated)
	if err != nil {
		return err
	}
	if err = e.Move(ctx, user, company); err != nil {
		return err
	}
	user.Isolated = ""
	e.cache.UpdateUser(user)
	return e.Unlock(ctx, user)
}

// Unlock removes the lock attribute entirely and clears the in-memory
// lock state. An isolated user must be restored first; unlocking it
// directly is a no-op, as is unlocking an active user.
func (e *Engine) Unlock(ctx context.Context, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("unlock", start, err) }()

	if user.IsIsolated() || !user.IsLocked() {
		return nil
	}
	mods := []directory.Mod{{Op: directory.ModDelete, Name: e.cfg.Lock.Attribute}}
	if err = e.store.Modify(ctx, user.DN, mods); err != nil {
		return err
	}

	user.Locked = time.Time{}
	user.LockedBy = ""
	e.cache.UpdateUser(user)
	return nil
}

// Move renames the user's directory entry under the target company,
// recomputes DN and affiliation, and rewrites the member reference in
// every group the user belongs to so memberships track the identity
// across the relocation.
func (e *Engine) Move(ctx context.Context, user *model.User, company *model.Company) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("move", start, err) }()

	oldDN := user.DN
	newDN := e.buildDN(user.ID, company.DN)
	if err = e.store.Rename(ctx, oldDN, newDN); err != nil {
		return err
	}

	user.DN = newDN
	user.Company = company.ID
	e.cache.UpdateUser(user)

	for _, group := range user.Groups {
		if err = e.updateMemberDN(ctx, group, oldDN, newDN); err != nil {
			return err
		}
	}
	return nil
}
