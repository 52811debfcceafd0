package engine

import (
	"context"
	"fmt"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// Create binds a new person entry under the user's company and writes it
// through to the cache. The DN is derived from the normalized login and
// the company DN.
//
// Concurrent creates of the same login race on the directory bind; the
// loser gets the directory's already-exists error and the cache stays
// untouched for it. This lost-update window is an accepted trade-off,
// callers wanting stronger guarantees serialize creates externally.
func (e *Engine) Create(ctx context.Context, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("create", start, err) }()

	company, err := e.company(user.Company)
	if err != nil {
		return err
	}
	user.ID = model.Normalize(user.ID)
	user.DN = e.buildDN(user.ID, company.DN)
	user.Company = company.ID

	attrs := e.toEntryAttrs(user)
	attrs[objectClassAttribute] = []string{e.cfg.People.ObjectClass}
	if err = e.store.Bind(ctx, user.DN, attrs); err != nil {
		return err
	}
	e.cache.CreateUser(user)
	return nil
}

// Update re-maps the user's business attributes onto its directory entry
// and refreshes the cached copy, preserving cached lifecycle state.
func (e *Engine) Update(ctx context.Context, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("update", start, err) }()

	if err = e.store.Modify(ctx, user.DN, e.updateMods(user)); err != nil {
		return err
	}

	if cached := e.cache.User(user.ID); cached != nil && cached != user {
		cached.FirstName = user.FirstName
		cached.LastName = user.LastName
		cached.Mails = append([]string(nil), user.Mails...)
		cached.Department = user.Department
		cached.LocalID = user.LocalID
		e.cache.UpdateUser(cached)
		return nil
	}
	e.cache.UpdateUser(user)
	return nil
}

// Delete removes the directory entry, every group membership referencing
// the user, and the cached copy, in that order.
func (e *Engine) Delete(ctx context.Context, user *model.User) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("delete", start, err) }()

	if err = e.store.Unbind(ctx, user.DN); err != nil {
		return err
	}
	groups := append([]string(nil), user.Groups...)
	for _, group := range groups {
		if err = e.RemoveUserFromGroup(ctx, user, group); err != nil {
			return err
		}
	}
	e.cache.DeleteUser(user)
	return nil
}

// FindByID returns the cached user for a login.
func (e *Engine) FindByID(id string) (*model.User, error) {
	if user := e.cache.User(model.Normalize(id)); user != nil {
		return user, nil
	}
	return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
}

// FindByIDNoCache reads the user straight from the directory, bypassing
// the cache. Groups are not populated.
func (e *Engine) FindByIDNoCache(ctx context.Context, login string) (*model.User, error) {
	return e.findOneBy(ctx, e.cfg.People.UIDAttribute, login)
}

// FindAllBy scans the directory for users matching one attribute value.
// Cached instances are preferred over the freshly mapped ones so callers
// observe reconciled group sets when available.
func (e *Engine) FindAllBy(ctx context.Context, attribute, value string) ([]*model.User, error) {
	filter := directory.Filter{}.
		Eq(objectClassAttribute, e.cfg.People.ObjectClass).
		Eq(attribute, value)
	entries, err := e.store.Search(ctx, e.cfg.People.BaseDN, filter)
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(entries))
	for i := range entries {
		user := e.userFromEntry(&entries[i])
		if cached := e.cache.User(user.ID); cached != nil {
			user = cached
		}
		users = append(users, user)
	}
	return users, nil
}

// FindAll returns the cached user population keyed by login.
func (e *Engine) FindAll() map[string]*model.User {
	return e.cache.Users()
}

// FindAllNoCache scans the full user population from the directory and
// reconciles it against the given groups. This is the cache
// repopulation path; the groups' member sets are normalized in place.
func (e *Engine) FindAllNoCache(ctx context.Context, groups map[string]*model.Group) (map[string]*model.User, error) {
	filter := directory.Filter{}.Eq(objectClassAttribute, e.cfg.People.ObjectClass)
	entries, err := e.store.Search(ctx, e.cfg.People.BaseDN, filter)
	if err != nil {
		return nil, err
	}

	users := make(map[string]*model.User, len(entries))
	for i := range entries {
		user := e.userFromEntry(&entries[i])
		user.Groups = []string{}
		users[user.ID] = user
	}

	e.reconcile(users, groups)
	return users, nil
}

func (e *Engine) findOneBy(ctx context.Context, attribute, value string) (*model.User, error) {
	filter := directory.Filter{}.
		Eq(objectClassAttribute, e.cfg.People.ObjectClass).
		Eq(attribute, value)
	entries, err := e.store.Search(ctx, e.cfg.People.BaseDN, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("user with %s=%q: %w", attribute, value, ErrNotFound)
	}
	return e.userFromEntry(&entries[0]), nil
}
