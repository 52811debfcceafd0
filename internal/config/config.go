// Package config loads and validates the dirsync configuration from a
// YAML file with environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/orvan-io/dirsync/internal/directory"
)

// Directory holds connection settings for the backing LDAP server.
type Directory struct {
	URL          string        `yaml:"url"`
	BindDN       string        `yaml:"bindDn"`
	BindPassword string        `yaml:"bindPassword"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"`
	StartTLS     bool          `yaml:"startTls"`
	InsecureTLS  bool          `yaml:"insecureTls"`
	MaxRetries   int           `yaml:"maxRetries" default:"3"`
}

// People describes where and how person entries are stored. The
// department and local-id attribute names are optional; an empty name
// skips the attribute entirely in both mapping directions.
type People struct {
	BaseDN              string `yaml:"baseDn"`
	ObjectClass         string `yaml:"objectClass" default:"inetOrgPerson"`
	UIDAttribute        string `yaml:"uidAttribute" default:"uid"`
	DepartmentAttribute string `yaml:"departmentAttribute"`
	LocalIDAttribute    string `yaml:"localIdAttribute"`
}

// Groups describes the group subtree. PlaceholderMemberDN is the
// directory's well-known member written into otherwise-empty groups to
// satisfy the mandatory member attribute.
type Groups struct {
	BaseDN              string `yaml:"baseDn"`
	ObjectClass         string `yaml:"objectClass" default:"groupOfUniqueNames"`
	MemberAttribute     string `yaml:"memberAttribute" default:"uniqueMember"`
	PlaceholderMemberDN string `yaml:"placeholderMemberDn"`
}

// Companies describes the organizational subtree and the affiliation
// pattern resolving a user's company from its DN. Pattern may be a plain
// string, in which case it names a single implicit company.
type Companies struct {
	BaseDN           string `yaml:"baseDn"`
	ObjectClass      string `yaml:"objectClass" default:"organizationalUnit"`
	Pattern          string `yaml:"pattern"`
	QuarantineBaseDN string `yaml:"quarantineBaseDn"`
}

// Lock configures the serialized lock record.
type Lock struct {
	Attribute string `yaml:"attribute"`
	Sentinel  string `yaml:"sentinel" default:"LOCKED"`
}

// Log configures the slog handler built by the CLI.
type Log struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"text"`
}

// Config is the full configuration surface consumed by the engine and
// the CLI.
type Config struct {
	Directory Directory `yaml:"directory"`
	People    People    `yaml:"people"`
	Groups    Groups    `yaml:"groups"`
	Companies Companies `yaml:"companies"`
	Lock      Lock      `yaml:"lock"`
	Log       Log       `yaml:"log"`
}

// Load reads, defaults, overrides and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets credentials stay out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DIRSYNC_BIND_DN"); v != "" {
		c.Directory.BindDN = v
	}
	if v := os.Getenv("DIRSYNC_BIND_PASSWORD"); v != "" {
		c.Directory.BindPassword = v
	}
	if v := os.Getenv("DIRSYNC_URL"); v != "" {
		c.Directory.URL = v
	}
}

// Validate checks required fields and that the affiliation pattern
// compiles. The pattern is compiled once here, not per lookup.
func (c *Config) Validate() error {
	if c.Directory.URL == "" {
		return fmt.Errorf("directory.url is required")
	}
	bases := []struct {
		key string
		dn  string
	}{
		{"people.baseDn", c.People.BaseDN},
		{"groups.baseDn", c.Groups.BaseDN},
		{"companies.baseDn", c.Companies.BaseDN},
		{"companies.quarantineBaseDn", c.Companies.QuarantineBaseDN},
	}
	for _, base := range bases {
		if base.dn == "" {
			return fmt.Errorf("%s is required", base.key)
		}
		if err := directory.ValidateDN(base.dn); err != nil {
			return fmt.Errorf("%s: %w", base.key, err)
		}
	}
	if c.Lock.Attribute == "" {
		return fmt.Errorf("lock.attribute is required")
	}
	if _, err := regexp.Compile(c.Companies.Pattern); err != nil {
		return fmt.Errorf("companies.pattern: %w", err)
	}
	return nil
}

// DirectoryConfig converts the YAML surface into transport settings.
func (c *Config) DirectoryConfig() *directory.Config {
	dc := directory.DefaultConfig()
	dc.URL = c.Directory.URL
	dc.BindDN = c.Directory.BindDN
	dc.BindPassword = c.Directory.BindPassword
	dc.Timeout = c.Directory.Timeout
	dc.StartTLS = c.Directory.StartTLS
	dc.InsecureSkipVerify = c.Directory.InsecureTLS
	dc.MaxRetries = c.Directory.MaxRetries
	return dc
}
