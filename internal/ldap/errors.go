package ldap

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/groupsync/internal/directory"
)

// mapError wraps err in a categorized directory error. The code is the LDAP
// result code when err carries one.
func mapError(operation, resource string, err error) error {
	if err == nil {
		return nil
	}

	var dirErr *directory.Error
	if errors.As(err, &dirErr) {
		return err
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return directory.NewError(operation, categorizeResultCode(ldapErr.ResultCode),
			resultCodeName(ldapErr.ResultCode), resource, err)
	}

	return directory.NewError(operation, categorizeGenericError(err), "", resource, err)
}

// notFound reports a missing entry that the server did not flag as an error,
// such as an empty search result.
func notFound(operation, resource, format string, args ...any) error {
	return directory.NewError(operation, directory.ErrorCategoryNotFound, "", resource, fmt.Errorf(format, args...))
}

// categorizeResultCode categorizes an error based on LDAP result code.
func categorizeResultCode(code uint16) directory.ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired,
		ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform,
		ldap.LDAPResultConfidentialityRequired:
		return directory.ErrorCategoryPermission

	case ldap.LDAPResultNoSuchObject:
		return directory.ErrorCategoryNotFound

	case ldap.LDAPResultEntryAlreadyExists,
		ldap.LDAPResultAttributeOrValueExists:
		return directory.ErrorCategoryConflict

	case ldap.LDAPResultInvalidAttributeSyntax,
		ldap.LDAPResultConstraintViolation,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNamingViolation,
		ldap.LDAPResultObjectClassViolation,
		ldap.LDAPResultUndefinedAttributeType,
		ldap.LDAPResultFilterError:
		return directory.ErrorCategoryValidation

	case ldap.LDAPResultBusy,
		ldap.LDAPResultAdminLimitExceeded,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultSizeLimitExceeded:
		return directory.ErrorCategoryThrottling

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultConnectError,
		ldap.LDAPResultTimeout,
		ldap.ErrorNetwork:
		return directory.ErrorCategoryConnection

	default:
		return directory.ErrorCategoryUnknown
	}
}

// categorizeGenericError categorizes non-LDAP errors.
func categorizeGenericError(err error) directory.ErrorCategory {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return directory.ErrorCategoryConnection
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "broken pipe"),
		strings.Contains(errStr, "no ldap server"):
		return directory.ErrorCategoryConnection
	case strings.Contains(errStr, "authentication"),
		strings.Contains(errStr, "credentials"),
		strings.Contains(errStr, "kerberos"),
		strings.Contains(errStr, "gssapi"):
		return directory.ErrorCategoryPermission
	default:
		return directory.ErrorCategoryUnknown
	}
}

// resultCodeName returns the go-ldap name of a result code.
func resultCodeName(code uint16) string {
	if name, ok := ldap.LDAPResultCodeMap[code]; ok {
		return name
	}
	return fmt.Sprintf("LDAP result %d", code)
}

// invalid reports a request rejected before it reached the server.
func invalid(operation, resource string, err error) error {
	return directory.NewError(operation, directory.ErrorCategoryValidation, "", resource, err)
}
