package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Filter is a conjunction of equality predicates over attribute
// name/value pairs, the only filter shape the engine needs.
type Filter struct {
	clauses []clause
}

type clause struct {
	attribute string
	value     string
}

// Eq appends an equality predicate and returns the extended filter. The
// receiver is left untouched; derived filters never share a backing array.
func (f Filter) Eq(attribute, value string) Filter {
	clauses := make([]clause, len(f.clauses), len(f.clauses)+1)
	copy(clauses, f.clauses)
	return Filter{clauses: append(clauses, clause{attribute: attribute, value: value})}
}

// Encode renders the filter as an RFC 4515 search filter string.
// Values are escaped; an empty filter matches everything.
func (f Filter) Encode() string {
	switch len(f.clauses) {
	case 0:
		return "(objectClass=*)"
	case 1:
		return f.clauses[0].encode()
	default:
		var sb strings.Builder
		sb.WriteString("(&")
		for _, c := range f.clauses {
			sb.WriteString(c.encode())
		}
		sb.WriteString(")")
		return sb.String()
	}
}

func (c clause) encode() string {
	return fmt.Sprintf("(%s=%s)", c.attribute, ldap.EscapeFilter(c.value))
}
