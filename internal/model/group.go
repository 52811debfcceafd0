package model

import "slices"

// Group is a membership container backed by a directory group entry.
// After reconciliation Members holds normalized user identifiers; before
// reconciliation it holds the raw member references read from the
// directory (usually DNs).
type Group struct {
	ID        string   `json:"id"`
	DN        string   `json:"dn"`
	Members   []string `json:"members,omitempty"`
	SubGroups []string `json:"subGroups,omitempty"`
}

// AddMember records a member identifier, keeping the set sorted and
// free of duplicates.
func (g *Group) AddMember(member string) {
	if i, found := slices.BinarySearch(g.Members, member); !found {
		g.Members = slices.Insert(g.Members, i, member)
	}
}

// RemoveMember drops a member identifier if present.
func (g *Group) RemoveMember(member string) {
	if i, found := slices.BinarySearch(g.Members, member); found {
		g.Members = slices.Delete(g.Members, i, i+1)
	}
}

// HasMember reports whether the identifier is in the member set.
func (g *Group) HasMember(member string) bool {
	_, found := slices.BinarySearch(g.Members, member)
	return found
}
