package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorCategory classifies directory failures for callers that only care
// about the broad shape of a problem.
type ErrorCategory string

const (
	CategoryConnection     ErrorCategory = "connection"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryPermission     ErrorCategory = "permission"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryValidation     ErrorCategory = "validation"
	CategoryServer         ErrorCategory = "server"
	CategoryUnknown        ErrorCategory = "unknown"
)

// Error wraps a failed directory operation with its category and, when
// the cause is an LDAP result, the protocol result code.
type Error struct {
	Op        string
	Category  ErrorCategory
	Code      uint16
	DN        string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	var parts []string
	if e.Code > 0 {
		parts = append(parts, fmt.Sprintf("directory %s failed (code %d)", e.Op, e.Code))
	} else {
		parts = append(parts, fmt.Sprintf("directory %s failed", e.Op))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if e.DN != "" {
		parts = append(parts, "DN: "+e.DN)
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// WrapError wraps err with operation context, categorizing LDAP result
// codes. Already-wrapped errors pass through unchanged.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dirErr *Error
	if errors.As(err, &dirErr) {
		return err
	}
	wrapped := &Error{Op: op, Cause: err, Category: CategoryUnknown}
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		wrapped.Code = ldapErr.ResultCode
		wrapped.Category = categorize(ldapErr.ResultCode)
		wrapped.Retryable = retryableCode(ldapErr.ResultCode)
	} else {
		wrapped.Retryable = retryableMessage(err)
		if wrapped.Retryable {
			wrapped.Category = CategoryConnection
		}
	}
	return wrapped
}

func categorize(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired:
		return CategoryAuthentication
	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return CategoryPermission
	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return CategoryNotFound
	case ldap.LDAPResultEntryAlreadyExists,
		ldap.LDAPResultAttributeOrValueExists,
		ldap.LDAPResultObjectClassViolation,
		ldap.LDAPResultNotAllowedOnNonLeaf:
		return CategoryConflict
	case ldap.LDAPResultInvalidAttributeSyntax,
		ldap.LDAPResultConstraintViolation,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNamingViolation:
		return CategoryValidation
	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultAdminLimitExceeded:
		return CategoryServer
	case ldap.LDAPResultConnectError,
		ldap.LDAPResultProtocolError:
		return CategoryConnection
	default:
		return CategoryUnknown
	}
}

func retryableCode(code uint16) bool {
	switch code {
	case ldap.LDAPResultBusy,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultServerDown,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultConnectError:
		return true
	default:
		return false
	}
}

func retryableMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection", "timeout", "network", "broken pipe", "connection reset"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Category returns the category of an error, unwrapping as needed.
func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	var dirErr *Error
	if errors.As(err, &dirErr) {
		return dirErr.Category
	}
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return categorize(ldapErr.ResultCode)
	}
	return CategoryUnknown
}

// IsNotFound reports whether err indicates a missing entry or attribute.
func IsNotFound(err error) bool {
	return Category(err) == CategoryNotFound
}

// IsConflict reports whether err indicates an already-existing entry or value.
func IsConflict(err error) bool {
	return Category(err) == CategoryConflict
}

// IsRetryable reports whether err is worth retrying at the transport level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var dirErr *Error
	if errors.As(err, &dirErr) {
		return dirErr.Retryable
	}
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return retryableCode(ldapErr.ResultCode)
	}
	return retryableMessage(err)
}
