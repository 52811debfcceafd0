package engine

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// reconcile cross-references every group's member list against the user
// population. Raw member references (DNs as stored in the directory) are
// reduced to normalized user identifiers, per-user group sets are
// rebuilt, and broken or stale references are logged without blocking.
//
// Each group's member set is rebuilt into a fresh slice and swapped in,
// so the input is never mutated mid-iteration. Running reconciliation
// twice over the same input yields identical members and groups sets.
func (e *Engine) reconcile(users map[string]*model.User, groups map[string]*model.Group) {
	placeholder := model.Normalize(e.cfg.Groups.PlaceholderMemberDN)

	for _, group := range groups {
		members := make([]string, 0, len(group.Members))
		seen := make(map[string]struct{}, len(group.Members))

		for _, ref := range group.Members {
			id := model.Normalize(directory.RDNValue(ref))
			if id == "" {
				continue
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				members = append(members, id)
			}

			user, ok := users[id]
			if !ok {
				if placeholder != "" && strings.HasPrefix(model.Normalize(ref), placeholder) {
					// The directory's well-known placeholder for a group
					// without real members yet.
					continue
				}
				e.log.Warn("broken user reference in group",
					slog.String("group", group.DN),
					slog.String("member", id))
				e.metrics.BrokenReference()
				continue
			}

			// A reference that is still DN-shaped but no longer agrees
			// with the user's current DN is stale. Membership still
			// counts; moves must not orphan accounts.
			if strings.Contains(ref, "=") && model.Normalize(ref) != model.Normalize(user.DN) {
				e.log.Warn("stale member DN in group",
					slog.String("group", group.DN),
					slog.String("member", ref),
					slog.String("current", user.DN))
			}
			user.AddGroup(group.ID)
		}

		sort.Strings(members)
		group.Members = members
	}
}
