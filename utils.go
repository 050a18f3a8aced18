package potatosync

import (
	"unicode"
	"unicode/utf8"
)

// IsValidName validates a client-supplied object name before it is joined
// with a namespace. A valid name:
//   - is not empty
//   - consists only of ASCII letters, digits, '.' and '-'
//   - is not "." or ".." (the only such names that resolve to a directory)
//
// Path separators, whitespace, control characters and any non-ASCII input
// are rejected, so a valid name always stays inside its namespace.
func IsValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			return false
		}
	}

	return true
}

// IsValidNamespace validates a principal subject used as a storage
// namespace. Identity providers issue subjects such as "auth0|123",
// "alice@example.com" or UUIDs, so the character set is wide. A valid
// namespace:
//   - is not empty and is valid UTF-8
//   - does not start with '.' (such entries at the storage root are
//     reserved for temp files, and "." and ".." resolve to directories)
//   - contains no '/', '\' or control characters
func IsValidNamespace(subject string) bool {
	if subject == "" || subject[0] == '.' || !utf8.ValidString(subject) {
		return false
	}
	for _, r := range subject {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
