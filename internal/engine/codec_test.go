package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

func TestToEntryAttrs(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil)
	user := &model.User{
		ID:         "ALice",
		FirstName:  "Alice",
		LastName:   "Zimmer",
		Mails:      []string{"alice@example.org"},
		Department: "R&D",
		LocalID:    "4711",
	}

	attrs := e.toEntryAttrs(user)

	assert.Equal(t, []string{"Alice Zimmer"}, attrs["cn"])
	assert.Equal(t, []string{"Zimmer"}, attrs["sn"])
	assert.Equal(t, []string{"Alice"}, attrs["givenName"])
	assert.Equal(t, []string{"alice"}, attrs["uid"])
	assert.Equal(t, []string{"alice@example.org"}, attrs["mail"])
	assert.Equal(t, []string{"R&D"}, attrs["departmentNumber"])
	assert.Equal(t, []string{"4711"}, attrs["employeeNumber"])
}

func TestToEntryAttrsSkipsUnconfiguredOptionals(t *testing.T) {
	cfg := testConfig()
	cfg.People.DepartmentAttribute = ""
	cfg.People.LocalIDAttribute = ""
	e := newTestEngine(t, newFakeStore(), cfg)

	attrs := e.toEntryAttrs(&model.User{ID: "bob", Department: "ignored", LocalID: "ignored"})

	assert.NotContains(t, attrs, "departmentNumber")
	assert.NotContains(t, attrs, "employeeNumber")
	assert.NotContains(t, attrs, "mail")
}

func TestUpdateModsClearsEmptyOptionals(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil)

	mods := e.updateMods(&model.User{ID: "bob", FirstName: "Bob", LastName: "Adler"})

	var cleared []string
	for _, mod := range mods {
		assert.Equal(t, directory.ModReplace, mod.Op)
		if len(mod.Values) == 0 {
			cleared = append(cleared, mod.Name)
		}
	}
	assert.ElementsMatch(t, []string{"mail", "departmentNumber", "employeeNumber"}, cleared)
}

func TestUserFromEntry(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil)
	entry := personEntry("uid=Alice,ou=ENG,"+peopleBase, "Alice", "Alice", "Zimmer", map[string][]string{
		"mail":             {"zimmer@example.org", "alice@example.org"},
		"userPassword":     {"{SSHA}xxxx"},
		"departmentNumber": {"R&D"},
		"employeeNumber":   {"4711"},
	})

	user := e.userFromEntry(&entry)

	assert.Equal(t, "alice", user.ID)
	assert.Equal(t, "eng", user.Company)
	assert.True(t, user.Secured)
	assert.False(t, user.IsLocked())
	assert.Equal(t, []string{"alice@example.org", "zimmer@example.org"}, user.Mails)
	assert.Equal(t, "R&D", user.Department)
	assert.Equal(t, "4711", user.LocalID)
	assert.Empty(t, user.Groups)
}

func TestLockRecordRoundTrip(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil)
	at := time.UnixMilli(1700000000000)

	value := e.encodeLockRecord("admin", "eng", at)
	assert.Equal(t, "LOCKED|1700000000000|admin|eng|", value)

	user := &model.User{DN: "uid=alice," + peopleBase}
	e.decodeLockRecord(user, value)
	assert.True(t, user.IsLocked())
	assert.Equal(t, at, user.Locked)
	assert.Equal(t, "admin", user.LockedBy)
	assert.Equal(t, "eng", user.Isolated)
}

func TestLockRecordDecode(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantLocked bool
	}{
		{
			name:       "empty value",
			value:      "",
			wantLocked: false,
		},
		{
			name:       "unrelated value",
			value:      "employee",
			wantLocked: false,
		},
		{
			name:       "locked without isolation",
			value:      "LOCKED|1700000000000|admin||",
			wantLocked: true,
		},
		{
			name:       "missing fragments treated as unlocked",
			value:      "LOCKED|1700000000000",
			wantLocked: false,
		},
		{
			name:       "bad timestamp treated as unlocked",
			value:      "LOCKED|yesterday|admin|eng|",
			wantLocked: false,
		},
	}

	e := newTestEngine(t, newFakeStore(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &model.User{DN: "uid=alice," + peopleBase}
			e.decodeLockRecord(user, tt.value)
			assert.Equal(t, tt.wantLocked, user.IsLocked())
			if !tt.wantLocked {
				assert.True(t, user.Locked.IsZero())
				assert.Empty(t, user.Isolated)
			}
		})
	}
}

func TestLockRecordEncodeDecodeAgree(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil)
	at := time.UnixMilli(1234567890123)

	for _, company := range []string{"", "eng"} {
		t.Run(fmt.Sprintf("previous company %q", company), func(t *testing.T) {
			user := &model.User{}
			e.decodeLockRecord(user, e.encodeLockRecord("robot", company, at))
			assert.Equal(t, at, user.Locked)
			assert.Equal(t, "robot", user.LockedBy)
			assert.Equal(t, company, user.Isolated)
		})
	}
}
