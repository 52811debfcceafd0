package model

import "strings"

// UserComparator orders two users. Negative means a sorts before b.
type UserComparator func(a, b *User) int

// ByID orders users by normalized login.
func ByID(a, b *User) int {
	return strings.Compare(a.ID, b.ID)
}

// ByFirstName orders users by first name, case-insensitively.
func ByFirstName(a, b *User) int {
	return compareFold(a.FirstName, b.FirstName)
}

// ByLastName orders users by last name, case-insensitively.
func ByLastName(a, b *User) int {
	return compareFold(a.LastName, b.LastName)
}

// ByCompany orders users by company identifier.
func ByCompany(a, b *User) int {
	return strings.Compare(a.Company, b.Company)
}

// ByMail orders users by their primary (first) mail address. Users
// without any mail sort first.
func ByMail(a, b *User) int {
	return compareFold(firstMail(a), firstMail(b))
}

// Reversed returns a comparator with the opposite ordering.
func (c UserComparator) Reversed() UserComparator {
	return func(a, b *User) int {
		return c(b, a)
	}
}

// ThenByID appends a fixed tie-break by id so the ordering is total
// even when the primary comparator reports equal.
func (c UserComparator) ThenByID() UserComparator {
	return func(a, b *User) int {
		if r := c(a, b); r != 0 {
			return r
		}
		return ByID(a, b)
	}
}

func firstMail(u *User) string {
	if len(u.Mails) == 0 {
		return ""
	}
	return u.Mails[0]
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
