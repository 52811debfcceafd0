// Package directory provides the entry-store contract the synchronization
// engine runs against, together with a go-ldap backed implementation.
package directory

import (
	"context"
	"crypto/tls"
	"time"
)

// ModOp selects the kind of attribute modification.
type ModOp int

const (
	ModReplace ModOp = iota
	ModAdd
	ModDelete
)

// Mod is a single attribute modification. A ModReplace or ModDelete with
// no values removes the attribute entirely; a ModDelete with values
// removes only those values.
type Mod struct {
	Op     ModOp
	Name   string
	Values []string
}

// Entry is a directory entry reduced to its DN and attribute values.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Value returns the first value of the named attribute, or the empty
// string when absent.
func (e *Entry) Value(name string) string {
	if values := e.Attributes[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Values returns all values of the named attribute.
func (e *Entry) Values(name string) []string {
	return e.Attributes[name]
}

// Has reports whether the named attribute is present with at least one value.
func (e *Entry) Has(name string) bool {
	return len(e.Attributes[name]) > 0
}

// Store is the minimal entry-store contract consumed by the engine. The
// engine never sees connections, TLS or wire encoding; implementations own
// transport concerns such as reconnection and retry.
type Store interface {
	// Bind creates a new entry at the given DN.
	Bind(ctx context.Context, dn string, attrs map[string][]string) error

	// Unbind removes the entry at the given DN.
	Unbind(ctx context.Context, dn string) error

	// Modify applies attribute operations to an existing entry.
	Modify(ctx context.Context, dn string, mods []Mod) error

	// Rename moves an entry to a new DN.
	Rename(ctx context.Context, oldDN, newDN string) error

	// Search returns every entry under baseDN matching the filter.
	Search(ctx context.Context, baseDN string, filter Filter) ([]Entry, error)

	// Authenticate locates the single entry matching the filter under
	// baseDN and verifies the credential against it. A missing entry is
	// not an error, just a false result.
	Authenticate(ctx context.Context, baseDN string, filter Filter, password string) (bool, error)
}

// Config holds connection settings for the LDAP-backed store.
type Config struct {
	URL          string        // ldap:// or ldaps:// URL
	BindDN       string        // Service account DN
	BindPassword string        // Service account credential
	Timeout      time.Duration // Per-operation time limit

	// TLS settings
	TLSConfig          *tls.Config
	StartTLS           bool
	InsecureSkipVerify bool

	// Retry settings
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultConfig returns conservative connection defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}
