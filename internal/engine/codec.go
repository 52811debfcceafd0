package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// toEntryAttrs maps a user onto directory attribute values. The
// department and local-id attributes are written only when their names
// are configured; an unconfigured name skips the attribute entirely.
func (e *Engine) toEntryAttrs(user *model.User) map[string][]string {
	attrs := map[string][]string{
		"cn":        {user.FirstName + " " + user.LastName},
		"sn":        {user.LastName},
		"givenName": {user.FirstName},
	}
	attrs[e.cfg.People.UIDAttribute] = []string{model.Normalize(user.ID)}
	if len(user.Mails) > 0 {
		mails := make([]string, len(user.Mails))
		copy(mails, user.Mails)
		attrs["mail"] = mails
	}
	if a := e.cfg.People.DepartmentAttribute; a != "" && user.Department != "" {
		attrs[a] = []string{user.Department}
	}
	if a := e.cfg.People.LocalIDAttribute; a != "" && user.LocalID != "" {
		attrs[a] = []string{user.LocalID}
	}
	return attrs
}

// updateMods builds the attribute replacements for an in-place update of
// an existing entry. A configured optional attribute with an empty value
// is replaced with no values, which removes it.
func (e *Engine) updateMods(user *model.User) []directory.Mod {
	mods := []directory.Mod{
		{Op: directory.ModReplace, Name: "cn", Values: []string{user.FirstName + " " + user.LastName}},
		{Op: directory.ModReplace, Name: "sn", Values: []string{user.LastName}},
		{Op: directory.ModReplace, Name: "givenName", Values: []string{user.FirstName}},
		{Op: directory.ModReplace, Name: "mail", Values: append([]string(nil), user.Mails...)},
	}
	if a := e.cfg.People.DepartmentAttribute; a != "" {
		mods = append(mods, replaceOrClear(a, user.Department))
	}
	if a := e.cfg.People.LocalIDAttribute; a != "" {
		mods = append(mods, replaceOrClear(a, user.LocalID))
	}
	return mods
}

func replaceOrClear(name, value string) directory.Mod {
	if value == "" {
		return directory.Mod{Op: directory.ModReplace, Name: name}
	}
	return directory.Mod{Op: directory.ModReplace, Name: name, Values: []string{value}}
}

// userFromEntry maps a directory entry back to the normalized user
// model. Secured reflects the presence of the credential attribute, not
// its value. Groups stay empty; only reconciliation populates them.
func (e *Engine) userFromEntry(entry *directory.Entry) *model.User {
	user := &model.User{
		DN:        entry.DN,
		ID:        model.Normalize(entry.Value(e.cfg.People.UIDAttribute)),
		FirstName: entry.Value("givenName"),
		LastName:  entry.Value("sn"),
		Secured:   entry.Has(credentialAttribute),
	}
	if a := e.cfg.People.DepartmentAttribute; a != "" {
		user.Department = entry.Value(a)
	}
	if a := e.cfg.People.LocalIDAttribute; a != "" {
		user.LocalID = entry.Value(a)
	}
	if a := e.cfg.Lock.Attribute; a != "" {
		e.decodeLockRecord(user, entry.Value(a))
	}
	user.Company = e.companyFromDN(user.DN)

	// Mails are kept sorted so comparisons and API output are stable.
	mails := append([]string(nil), entry.Values("mail")...)
	sort.Strings(mails)
	user.Mails = mails
	return user
}

// encodeLockRecord serializes the lock state into the lock attribute
// value: sentinel, lock time in epoch millis, locking principal, and the
// previous company when the lock is part of an isolation. The always
// present trailing field keeps the historical trailing pipe.
func (e *Engine) encodeLockRecord(principal, previousCompany string, at time.Time) string {
	return fmt.Sprintf("%s|%d|%s|%s|", e.cfg.Lock.Sentinel, at.UnixMilli(), principal, previousCompany)
}

// decodeLockRecord fills the lifecycle fields from a raw lock attribute
// value. A value not starting with the sentinel means an active account.
// A sentinel-prefixed value with fewer than four fragments, or an
// unparsable timestamp, is treated as unlocked and logged: one corrupt
// record must not abort a full directory scan.
func (e *Engine) decodeLockRecord(user *model.User, value string) {
	if value == "" || !strings.HasPrefix(value, e.cfg.Lock.Sentinel) {
		return
	}
	fragments := strings.Split(value, "|")
	if len(fragments) < 4 {
		e.log.Warn("malformed lock record, treating account as unlocked",
			slog.String("dn", user.DN),
			slog.Int("fragments", len(fragments)))
		return
	}
	millis, err := strconv.ParseInt(fragments[1], 10, 64)
	if err != nil {
		e.log.Warn("malformed lock timestamp, treating account as unlocked",
			slog.String("dn", user.DN),
			slog.String("value", fragments[1]))
		return
	}
	user.Locked = time.UnixMilli(millis)
	user.LockedBy = fragments[2]
	user.Isolated = fragments[3]
}
