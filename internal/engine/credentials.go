package engine

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// mailShaped decides whether an authentication name is an address or a
// login. It is a shape check, not full address validation.
var mailShaped = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Authenticate checks a name/password pair against the directory. A
// mail-shaped name matches on the mail attribute, anything else on the
// login attribute. The credential comparison happens on the directory
// side; the engine never sees or compares stored digests here.
func (e *Engine) Authenticate(ctx context.Context, name, password string) (ok bool, err error) {
	start := e.now()
	defer func() { e.metrics.Observe("authenticate", start, err) }()

	attribute := e.cfg.People.UIDAttribute
	if mailShaped.MatchString(name) {
		attribute = "mail"
	}
	filter := directory.Filter{}.
		Eq(objectClassAttribute, e.cfg.People.ObjectClass).
		Eq(attribute, name)
	return e.store.Authenticate(ctx, e.cfg.People.BaseDN, filter, password)
}

// SetPassword writes a fresh salted credential digest for the user. Only
// the credential attribute is touched.
func (e *Engine) SetPassword(ctx context.Context, user *model.User, password string) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("set_password", start, err) }()

	digest, err := sshaDigest(password)
	if err != nil {
		return err
	}
	if err = e.set(ctx, user, credentialAttribute, digest); err != nil {
		return err
	}
	user.Secured = true
	e.cache.UpdateUser(user)
	return nil
}

// GetToken reads the raw credential attribute value for out-of-band use.
// A missing entry or an entry without a credential yields nil, nil.
func (e *Engine) GetToken(ctx context.Context, login string) ([]byte, error) {
	filter := directory.Filter{}.
		Eq(objectClassAttribute, e.cfg.People.ObjectClass).
		Eq(e.cfg.People.UIDAttribute, model.Normalize(login))
	entries, err := e.store.Search(ctx, e.cfg.People.BaseDN, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	value := entries[0].Value(credentialAttribute)
	if value == "" {
		return nil, nil
	}
	return []byte(value), nil
}

// set replaces a single attribute value, leaving everything else on the
// entry untouched.
func (e *Engine) set(ctx context.Context, user *model.User, name, value string) error {
	mods := []directory.Mod{{Op: directory.ModReplace, Name: name, Values: []string{value}}}
	return e.store.Modify(ctx, user.DN, mods)
}

// sshaDigest computes the directory-compatible salted SHA-1 credential:
// "{SSHA}" + base64(sha1(password + salt) + salt) with a 4-byte random
// salt.
func sshaDigest(password string) (string, error) {
	salt := make([]byte, 4)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h := sha1.New()
	h.Write([]byte(password))
	h.Write(salt)
	digest := append(h.Sum(nil), salt...)
	return "{SSHA}" + base64.StdEncoding.EncodeToString(digest), nil
}
