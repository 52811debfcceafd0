package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterEncode(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected string
	}{
		{
			name:     "empty matches everything",
			filter:   Filter{},
			expected: "(objectClass=*)",
		},
		{
			name:     "single clause",
			filter:   Filter{}.Eq("uid", "bob"),
			expected: "(uid=bob)",
		},
		{
			name:     "conjunction",
			filter:   Filter{}.Eq("objectClass", "inetOrgPerson").Eq("uid", "bob"),
			expected: "(&(objectClass=inetOrgPerson)(uid=bob))",
		},
		{
			name:     "value escaped",
			filter:   Filter{}.Eq("cn", "a*(b)"),
			expected: `(cn=a\2a\28b\29)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Encode())
		})
	}
}

func TestFilterEqDoesNotMutateReceiver(t *testing.T) {
	base := Filter{}.Eq("objectClass", "inetOrgPerson")
	a := base.Eq("uid", "alice")
	b := base.Eq("uid", "bob")
	assert.Equal(t, "(&(objectClass=inetOrgPerson)(uid=alice))", a.Encode())
	assert.Equal(t, "(&(objectClass=inetOrgPerson)(uid=bob))", b.Encode())
}
