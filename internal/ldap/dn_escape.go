package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeDNValue escapes special characters in a DN attribute value according to RFC 4514.
//
// Examples:
//   - "Doe, John" → "Doe\, John"
//   - " John " → "\ John\ "
//   - "#123" → "\#123"
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 10)

	last := len(value) - 1
	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';', '=':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			if i == 0 || i == last {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// groupDN returns the DN of group name directly below container.
func groupDN(name, container string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("group name cannot be empty")
	}
	if _, err := ldap.ParseDN(container); err != nil || container == "" {
		return "", fmt.Errorf("invalid group container %q", container)
	}
	return "CN=" + EscapeDNValue(name) + "," + container, nil
}
