package ldap

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/groupsync/internal/directory"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category directory.ErrorCategory
		code     string
	}{
		{"no such object", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("x")), directory.ErrorCategoryNotFound, "No Such Object"},
		{"entry exists", ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("x")), directory.ErrorCategoryConflict, "Entry Already Exists"},
		{"value exists", ldap.NewError(ldap.LDAPResultAttributeOrValueExists, errors.New("x")), directory.ErrorCategoryConflict, "Attribute Or Value Exists"},
		{"access rights", ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("x")), directory.ErrorCategoryPermission, "Insufficient Access Rights"},
		{"invalid credentials", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("x")), directory.ErrorCategoryPermission, "Invalid Credentials"},
		{"constraint violation", ldap.NewError(ldap.LDAPResultConstraintViolation, errors.New("x")), directory.ErrorCategoryValidation, "Constraint Violation"},
		{"busy", ldap.NewError(ldap.LDAPResultBusy, errors.New("x")), directory.ErrorCategoryThrottling, "Busy"},
		{"server down", ldap.NewError(ldap.LDAPResultServerDown, errors.New("x")), directory.ErrorCategoryConnection, "Cannot establish a connection"},
		{"network", ldap.NewError(ldap.ErrorNetwork, errors.New("x")), directory.ErrorCategoryConnection, "Network Error"},
		{"other code", ldap.NewError(ldap.LDAPResultOther, errors.New("x")), directory.ErrorCategoryUnknown, "Other"},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, directory.ErrorCategoryConnection, ""},
		{"timeout text", errors.New("i/o timeout"), directory.ErrorCategoryConnection, ""},
		{"gssapi text", errors.New("GSSAPI bind failed"), directory.ErrorCategoryPermission, ""},
		{"anything else", errors.New("boom"), directory.ErrorCategoryUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("op", "res", fmt.Errorf("wrapped: %w", tt.err))

			var dirErr *directory.Error
			require.ErrorAs(t, err, &dirErr)
			assert.Equal(t, tt.category, dirErr.Category)
			assert.Equal(t, tt.code, dirErr.Code)
			assert.Equal(t, "op", dirErr.Operation)
			assert.Equal(t, "res", dirErr.Resource)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	assert.NoError(t, mapError("op", "res", nil))

	original := notFound("get_group", "admins", "group %q not found", "admins")
	mapped := mapError("other_op", "other", original)
	assert.Same(t, original, mapped)
}

func TestResultCodeName(t *testing.T) {
	assert.Equal(t, "No Such Object", resultCodeName(ldap.LDAPResultNoSuchObject))
	assert.Equal(t, "LDAP result 9999", resultCodeName(9999))
}
