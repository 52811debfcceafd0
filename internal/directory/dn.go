package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// JoinDN builds a child DN from a leading attribute/value pair and a
// parent DN: JoinDN("uid", "bob", "ou=eng,dc=x") -> "uid=bob,ou=eng,dc=x".
func JoinDN(attribute, value, parentDN string) string {
	rdn := attribute + "=" + ldap.EscapeDN(value)
	if parentDN == "" {
		return rdn
	}
	return rdn + "," + parentDN
}

// RDNValue extracts the value of the leading relative component of a
// DN-like reference. A reference without an attribute type ("bob") is
// returned as-is, so the extraction is idempotent over already-reduced
// identifiers.
func RDNValue(ref string) string {
	if !strings.Contains(ref, "=") {
		return strings.TrimSpace(ref)
	}
	if parsed, err := ldap.ParseDN(ref); err == nil && len(parsed.RDNs) > 0 && len(parsed.RDNs[0].Attributes) > 0 {
		return parsed.RDNs[0].Attributes[0].Value
	}
	// Fall back to naive splitting for values go-ldap refuses to parse.
	leading := strings.SplitN(ref, ",", 2)[0]
	return strings.TrimSpace(strings.SplitN(leading, "=", 2)[1])
}

// SplitRDN splits a DN into its leading RDN and the parent DN.
func SplitRDN(dn string) (rdn, parent string, err error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", "", fmt.Errorf("invalid DN syntax %q: %w", dn, err)
	}
	if len(parsed.RDNs) == 0 {
		return "", "", fmt.Errorf("empty DN")
	}
	parts := make([]string, 0, len(parsed.RDNs))
	for _, r := range parsed.RDNs {
		attrs := make([]string, 0, len(r.Attributes))
		for _, a := range r.Attributes {
			attrs = append(attrs, a.Type+"="+ldap.EscapeDN(a.Value))
		}
		parts = append(parts, strings.Join(attrs, "+"))
	}
	return parts[0], strings.Join(parts[1:], ","), nil
}

// ValidateDN validates DN syntax without resolving the entry.
func ValidateDN(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}
	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN syntax %q: %w", dn, err)
	}
	return nil
}
