package ldap

import (
	"context"
	"errors"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/logging"
)

// logLDAPError logs LDAP-specific error information.
func logLDAPError(ctx context.Context, operation string, err error, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["operation"] = operation
	fields["error"] = err.Error()

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		fields["ldap_result_code"] = ldapErr.ResultCode
		if ldapErr.MatchedDN != "" {
			fields["ldap_matched_dn"] = ldapErr.MatchedDN
		}
		if ldapErr.Err != nil {
			fields["ldap_diagnostic_message"] = ldapErr.Err.Error()
		}
	}

	// Codes that map to outcomes rather than failures log at debug.
	level := tflog.SubsystemError
	if ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		level = tflog.SubsystemDebug
	}

	level(ctx, logging.SubsystemLDAP, "LDAP operation failed", logging.SanitizeFields(fields))
}
