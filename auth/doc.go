// Package auth authenticates bearer tokens for the gateway.
//
// Three strategies are supported and one is chosen at startup:
//
//   - symmetric: HMAC-signed tokens checked against a shared secret. The
//     "type" claim must match the configured token type and "role" becomes
//     the principal's only role.
//   - jwks: asymmetric tokens checked against keys published by an OpenID
//     Connect authority. Keys are cached for a TTL and looked up by kid.
//   - introspection: the token is posted to an RFC 7662 endpoint on every
//     request.
//
// Every strategy produces a potatosync.Principal. Failures are *Error values
// carrying a Kind; KeySetUnavailable and IntrospectionUnavailable are
// transient and surface as 503 rather than 401.
package auth
