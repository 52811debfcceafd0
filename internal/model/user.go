package model

import (
	"slices"
	"time"
)

// User is the normalized identity record backing a directory person entry.
type User struct {
	// Core identification
	ID string `json:"id"` // Normalized login, unique
	DN string `json:"dn"` // Distinguished name, changes on every relocation

	// Business attributes, each independently optional
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Mails      []string `json:"mails,omitempty"` // Always stored sorted
	Department string   `json:"department,omitempty"`
	LocalID    string   `json:"localId,omitempty"`

	// Company is derived from the DN by the affiliation resolver,
	// never stored independently.
	Company string `json:"company,omitempty"`

	// Groups is populated by membership reconciliation only; a bare
	// directory read leaves it empty.
	Groups []string `json:"groups,omitempty"`

	// Secured reports whether a credential attribute is present.
	Secured bool `json:"secured"`

	// Lifecycle state. Locked is the zero time when the account is active.
	// LockedBy is set iff Locked is set. Isolated holds the company the
	// user was moved out of when quarantined.
	Locked   time.Time `json:"locked,omitzero"`
	LockedBy string    `json:"lockedBy,omitempty"`
	Isolated string    `json:"isolated,omitempty"`
}

// IsLocked reports whether a lock record is set on this user.
func (u *User) IsLocked() bool {
	return u.LockedBy != ""
}

// IsIsolated reports whether the user is quarantined.
func (u *User) IsIsolated() bool {
	return u.Isolated != ""
}

// AddGroup records a group membership, keeping the set sorted and
// free of duplicates.
func (u *User) AddGroup(group string) {
	if i, found := slices.BinarySearch(u.Groups, group); !found {
		u.Groups = slices.Insert(u.Groups, i, group)
	}
}

// RemoveGroup drops a group membership if present.
func (u *User) RemoveGroup(group string) {
	if i, found := slices.BinarySearch(u.Groups, group); found {
		u.Groups = slices.Delete(u.Groups, i, i+1)
	}
}

// InGroup reports whether the user is a member of the given group.
func (u *User) InGroup(group string) bool {
	_, found := slices.BinarySearch(u.Groups, group)
	return found
}
