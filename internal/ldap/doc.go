/*
Package ldap implements directory.Directory over Active Directory.

# Architecture Overview

  - Client: a single authenticated connection with paged search
  - GroupManager: group lookup, listing and creation in one container
  - MembershipManager: member addition and member listing
  - UserResolver: sAMAccountName to DN resolution
  - Directory: the directory.Directory adapter combining the managers

# Connection Management

Servers come from configured ldap:// or ldaps:// URLs, or from DNS SRV
discovery of the domain:

  - _ldaps._tcp.<domain> first, then _ldap._tcp.<domain> with StartTLS
  - standard ports on the domain name when no SRV record exists
  - simple bind or Kerberos (GSSAPI) authentication

Servers are tried in order until one connects and binds. Failed operations
are not retried.

# Directory Mapping

The directory ID is the DN of the container that holds the groups. Group
names map to the cn of objects directly below it, matched case-sensitively.
The role reference is stored in the info attribute. Active Directory has no
group precedence, so precedence is dropped.

Listing cursors are the base64 encoding of the paged results cookie.

# Error Handling

LDAP result codes are mapped to directory error categories so callers never
inspect go-ldap errors.

# Example Usage

	client, err := ldap.NewClient(ctx, &ldap.ConnectionConfig{
		Domain:   "example.com",
		BaseDN:   "DC=example,DC=com",
		Username: "svc-groupsync@example.com",
		Password: password,
		UseTLS:   true,
		Timeout:  30 * time.Second,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	dir := ldap.NewDirectory(client, "DC=example,DC=com")
	lookup := dir.GetGroup(ctx, "OU=Groups,DC=example,DC=com", "admins")
*/
package ldap
