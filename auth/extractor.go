package auth

import (
	"net/http"
	"strings"
)

const bearerScheme = "Bearer"

// ExtractBearer returns the bearer token from the Authorization header.
// The scheme is matched case-insensitively and must be followed by
// whitespace. A missing header, another scheme or an empty token all return
// ErrMissingToken.
func ExtractBearer(h http.Header) (string, error) {
	v := strings.TrimSpace(h.Get("Authorization"))
	if v == "" {
		return "", newError(MissingToken, "missing Authorization header")
	}

	if len(v) < len(bearerScheme) || !strings.EqualFold(v[:len(bearerScheme)], bearerScheme) {
		return "", newError(MissingToken, "authorization scheme is not %s", bearerScheme)
	}

	rest := v[len(bearerScheme):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", newError(MissingToken, "authorization scheme is not %s", bearerScheme)
	}

	token := strings.TrimSpace(rest)
	if token == "" {
		return "", newError(MissingToken, "empty bearer token")
	}

	return token, nil
}
