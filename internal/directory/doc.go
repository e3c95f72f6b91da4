/*
Package directory defines the contract between the group synchronization
engine and a remote identity directory.

# Backends

Two backends implement Directory:

  - cognito: Amazon Cognito user pools (directory ID is the user pool ID)
  - ldap: Active Directory over LDAP (directory ID is the group container DN)

# Lookups

GetGroup never returns a vendor error. It returns a Lookup whose Status is
one of Found, NotFound or Failed, so callers can distinguish a missing group
from a failed query without knowing any SDK error hierarchy.

# Create payloads

CreateGroupInput carries optional attributes as pointers. A nil field is
omitted from the request entirely; backends never send empty placeholders.

# Rate limiting

NewRateLimited wraps any Directory so that every call first waits on a
shared token bucket. A cancelled context ends the wait with an error and
the wrapped Directory is not called.
*/
package directory
