package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// FindAllGroupsNoCache scans the group subtree. Member references
// pointing back into the group subtree are split off as subgroup links;
// everything else stays in Members for reconciliation to resolve
// against the user population.
func (e *Engine) FindAllGroupsNoCache(ctx context.Context) (map[string]*model.Group, error) {
	filter := directory.Filter{}.Eq(objectClassAttribute, e.cfg.Groups.ObjectClass)
	entries, err := e.store.Search(ctx, e.cfg.Groups.BaseDN, filter)
	if err != nil {
		return nil, err
	}

	groupSuffix := "," + model.Normalize(e.cfg.Groups.BaseDN)
	groups := make(map[string]*model.Group, len(entries))
	for i := range entries {
		entry := &entries[i]
		group := &model.Group{
			ID: model.Normalize(directory.RDNValue(entry.DN)),
			DN: entry.DN,
		}
		for _, ref := range entry.Values(e.cfg.Groups.MemberAttribute) {
			if strings.HasSuffix(model.Normalize(ref), groupSuffix) {
				group.SubGroups = append(group.SubGroups, model.Normalize(directory.RDNValue(ref)))
				continue
			}
			group.Members = append(group.Members, ref)
		}
		sort.Strings(group.SubGroups)
		groups[group.ID] = group
	}
	return groups, nil
}

// FindAllGroups returns the cached group population keyed by group id.
func (e *Engine) FindAllGroups() map[string]*model.Group {
	return e.cache.Groups()
}

// CreateGroup binds a new group entry under the group base. Directories
// with a mandatory member attribute get the configured placeholder
// member so the entry is schema-valid while empty.
func (e *Engine) CreateGroup(ctx context.Context, id string) (group *model.Group, err error) {
	start := e.now()
	defer func() { e.metrics.Observe("group_create", start, err) }()

	id = model.Normalize(id)
	dn := directory.JoinDN("cn", id, e.cfg.Groups.BaseDN)
	attrs := map[string][]string{
		objectClassAttribute: {e.cfg.Groups.ObjectClass},
		"cn":                 {id},
	}
	if p := e.cfg.Groups.PlaceholderMemberDN; p != "" {
		attrs[e.cfg.Groups.MemberAttribute] = []string{p}
	}
	if err = e.store.Bind(ctx, dn, attrs); err != nil {
		return nil, err
	}

	group = &model.Group{ID: id, DN: dn, Members: []string{}}
	e.cache.CreateGroup(group)
	return group, nil
}

// DeleteGroup removes the group entry and strips the membership from
// every cached user that carried it.
func (e *Engine) DeleteGroup(ctx context.Context, id string) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("group_delete", start, err) }()

	group, err := e.group(id)
	if err != nil {
		return err
	}
	if err = e.store.Unbind(ctx, group.DN); err != nil {
		return err
	}
	for _, member := range group.Members {
		if user := e.cache.User(member); user != nil {
			user.RemoveGroup(group.ID)
			e.cache.UpdateUser(user)
		}
	}
	e.cache.DeleteGroup(group)
	return nil
}

// AddUserToGroup adds the user's DN to the group's member attribute and
// records the membership on both cached sides. Adding an existing member
// is a no-op, including when the directory already holds the reference
// but the cache does not.
func (e *Engine) AddUserToGroup(ctx context.Context, user *model.User, groupID string) error {
	group, err := e.group(groupID)
	if err != nil {
		return err
	}
	if group.HasMember(user.ID) {
		return nil
	}

	mods := []directory.Mod{{Op: directory.ModAdd, Name: e.cfg.Groups.MemberAttribute, Values: []string{user.DN}}}
	if err := e.store.Modify(ctx, group.DN, mods); err != nil && !directory.IsConflict(err) {
		return err
	}

	group.AddMember(user.ID)
	user.AddGroup(group.ID)
	e.cache.UpdateGroup(group)
	e.cache.UpdateUser(user)
	return nil
}

// RemoveUserFromGroup removes the user's DN from the group's member
// attribute. When the departure would leave the group without members
// and a placeholder is configured, the placeholder is added before the
// removal so the mandatory member attribute never empties. A reference
// the directory no longer holds is tolerated; the cache is corrected
// either way.
func (e *Engine) RemoveUserFromGroup(ctx context.Context, user *model.User, groupID string) error {
	group, err := e.group(groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(user.ID) {
		user.RemoveGroup(group.ID)
		e.cache.UpdateUser(user)
		return nil
	}

	if len(group.Members) == 1 {
		if p := e.cfg.Groups.PlaceholderMemberDN; p != "" {
			mods := []directory.Mod{{Op: directory.ModAdd, Name: e.cfg.Groups.MemberAttribute, Values: []string{p}}}
			if err := e.store.Modify(ctx, group.DN, mods); err != nil && !directory.IsConflict(err) {
				return err
			}
		}
	}

	mods := []directory.Mod{{Op: directory.ModDelete, Name: e.cfg.Groups.MemberAttribute, Values: []string{user.DN}}}
	if err := e.store.Modify(ctx, group.DN, mods); err != nil && !directory.IsNotFound(err) {
		return err
	}

	group.RemoveMember(user.ID)
	user.RemoveGroup(group.ID)
	e.cache.UpdateGroup(group)
	e.cache.UpdateUser(user)
	return nil
}

// UpdateMembership reconciles a user's memberships toward the wanted
// group set: missing memberships are added, surplus ones removed. The
// wanted identifiers are normalized before the diff.
func (e *Engine) UpdateMembership(ctx context.Context, user *model.User, wanted []string) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("membership", start, err) }()

	target := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		target[model.Normalize(id)] = struct{}{}
	}

	for _, current := range append([]string(nil), user.Groups...) {
		if _, keep := target[current]; !keep {
			if err = e.RemoveUserFromGroup(ctx, user, current); err != nil {
				return err
			}
		}
	}
	for id := range target {
		if !user.InGroup(id) {
			if err = e.AddUserToGroup(ctx, user, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// updateMemberDN rewrites a member reference after a rename. The new
// reference is added before the old one is removed so the group never
// transits through a state without the member; both halves tolerate the
// directory already agreeing.
func (e *Engine) updateMemberDN(ctx context.Context, groupID, oldDN, newDN string) error {
	group, err := e.group(groupID)
	if err != nil {
		return err
	}

	add := []directory.Mod{{Op: directory.ModAdd, Name: e.cfg.Groups.MemberAttribute, Values: []string{newDN}}}
	if err := e.store.Modify(ctx, group.DN, add); err != nil && !directory.IsConflict(err) {
		return err
	}
	del := []directory.Mod{{Op: directory.ModDelete, Name: e.cfg.Groups.MemberAttribute, Values: []string{oldDN}}}
	if err := e.store.Modify(ctx, group.DN, del); err != nil && !directory.IsNotFound(err) {
		return err
	}
	return nil
}
