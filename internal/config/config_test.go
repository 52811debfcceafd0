package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
directory:
  url: ldap://localhost:389
people:
  baseDn: ou=people,dc=example,dc=org
groups:
  baseDn: ou=groups,dc=example,dc=org
companies:
  baseDn: ou=people,dc=example,dc=org
  quarantineBaseDn: ou=quarantine,dc=example,dc=org
  pattern: "ou=(.+),ou=people,.*"
lock:
  attribute: employeeType
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dirsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "inetOrgPerson", cfg.People.ObjectClass)
	assert.Equal(t, "uid", cfg.People.UIDAttribute)
	assert.Equal(t, "groupOfUniqueNames", cfg.Groups.ObjectClass)
	assert.Equal(t, "uniqueMember", cfg.Groups.MemberAttribute)
	assert.Equal(t, "organizationalUnit", cfg.Companies.ObjectClass)
	assert.Equal(t, "LOCKED", cfg.Lock.Sentinel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Directory.MaxRetries)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DIRSYNC_URL", "ldaps://directory.internal:636")
	t.Setenv("DIRSYNC_BIND_DN", "cn=svc,dc=example,dc=org")
	t.Setenv("DIRSYNC_BIND_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "ldaps://directory.internal:636", cfg.Directory.URL)
	assert.Equal(t, "cn=svc,dc=example,dc=org", cfg.Directory.BindDN)
	assert.Equal(t, "secret", cfg.Directory.BindPassword)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "missing url",
			config: `
people:
  baseDn: ou=people,dc=example,dc=org
groups:
  baseDn: ou=groups,dc=example,dc=org
companies:
  baseDn: ou=people,dc=example,dc=org
  quarantineBaseDn: ou=quarantine,dc=example,dc=org
lock:
  attribute: employeeType
`,
			wantErr: "directory.url",
		},
		{
			name: "bad affiliation pattern",
			config: `
directory:
  url: ldap://localhost:389
people:
  baseDn: ou=people,dc=example,dc=org
groups:
  baseDn: ou=groups,dc=example,dc=org
companies:
  baseDn: ou=people,dc=example,dc=org
  quarantineBaseDn: ou=quarantine,dc=example,dc=org
  pattern: "ou=(["
lock:
  attribute: employeeType
`,
			wantErr: "companies.pattern",
		},
		{
			name: "malformed base dn",
			config: `
directory:
  url: ldap://localhost:389
people:
  baseDn: not a dn
groups:
  baseDn: ou=groups,dc=example,dc=org
companies:
  baseDn: ou=people,dc=example,dc=org
  quarantineBaseDn: ou=quarantine,dc=example,dc=org
lock:
  attribute: employeeType
`,
			wantErr: "people.baseDn",
		},
		{
			name: "missing lock attribute",
			config: `
directory:
  url: ldap://localhost:389
people:
  baseDn: ou=people,dc=example,dc=org
groups:
  baseDn: ou=groups,dc=example,dc=org
companies:
  baseDn: ou=people,dc=example,dc=org
  quarantineBaseDn: ou=quarantine,dc=example,dc=org
`,
			wantErr: "lock.attribute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDirectoryConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	dc := cfg.DirectoryConfig()
	assert.Equal(t, cfg.Directory.URL, dc.URL)
	assert.Equal(t, cfg.Directory.MaxRetries, dc.MaxRetries)
}