package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// DefaultKeySetTTL is how long a fetched key set is trusted before refresh.
const DefaultKeySetTTL = 10 * time.Minute

// JWKSConfig configures validation against an OpenID Connect authority.
type JWKSConfig struct {
	// Authority is the realm base URL, e.g. https://id.example.com/realms/app.
	Authority string
	// Issuer is the required "iss" claim. Defaults to Authority.
	Issuer string
	// CertsURL overrides the key set location. Defaults to the Keycloak
	// layout {Authority}/protocol/openid-connect/certs.
	CertsURL string
	TTL      time.Duration
}

// authority is the realm URL without trailing slashes, the form the
// authority puts in "iss".
func (c JWKSConfig) authority() string {
	return strings.TrimRight(c.Authority, "/")
}

func (c JWKSConfig) issuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return c.authority()
}

func (c JWKSConfig) certsURL() string {
	if c.CertsURL != "" {
		return c.CertsURL
	}
	return c.authority() + "/protocol/openid-connect/certs"
}

// accessClaims is an authority-issued access token payload: the fields the
// Principal is built from and the full claim map.
type accessClaims struct {
	Subject string
	Roles   []string
	Raw     map[string]any
}

// JWKSValidator verifies asymmetric tokens against keys published by an
// authority.
type JWKSValidator struct {
	keys   *KeySetCache
	parser *jwt.Parser
}

func NewJWKSValidator(cfg JWKSConfig, client *http.Client) (*JWKSValidator, error) {
	if cfg.Authority == "" && cfg.CertsURL == "" {
		return nil, errors.New("new jwks validator: authority cannot be empty")
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultKeySetTTL
	}
	return NewJWKSValidatorWithCache(NewKeySetCache(cfg.certsURL(), cfg.issuer(), client, ttl)), nil
}

// NewJWKSValidatorWithCache builds a validator on an existing key set cache.
func NewJWKSValidatorWithCache(keys *KeySetCache) *JWKSValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			"RS256", "RS384", "RS512",
			"PS256", "PS384", "PS512",
			"ES256", "ES384", "ES512",
			"EdDSA",
		}),
	}
	if keys.issuer != "" {
		opts = append(opts, jwt.WithIssuer(keys.issuer))
	}
	return &JWKSValidator{keys: keys, parser: jwt.NewParser(opts...)}
}

// Validate reads the kid from the token header, looks the key up in the
// cached set and verifies signature, issuer and time claims. An unknown kid
// does not trigger a key set refresh.
func (v *JWKSValidator) Validate(ctx context.Context, token string) (potatosync.Principal, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: MalformedToken, Err: err}
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return potatosync.Principal{}, newError(MalformedToken, "token header has no kid")
	}

	set, err := v.keys.Get(ctx)
	if err != nil {
		return potatosync.Principal{}, err
	}
	key, ok := set.Key(kid)
	if !ok {
		return potatosync.Principal{}, newError(UnknownKey, "no key with kid %q", kid)
	}

	_, err = v.parser.ParseWithClaims(token, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: InvalidToken, Err: err}
	}

	access, err := decodeAccessClaims(token)
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: InvalidToken, Err: err}
	}

	p, err := potatosync.NewPrincipal(access.Subject, access.Roles, access.Raw)
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: InvalidToken, Err: err}
	}
	return p, nil
}

// decodeAccessClaims decodes the payload of an already verified token.
func decodeAccessClaims(token string) (accessClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return accessClaims{}, fmt.Errorf("decode claims: token has %d segments", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return accessClaims{}, fmt.Errorf("decode claims: %w", err)
	}

	var typed struct {
		Subject     string `json:"sub"`
		RealmAccess struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := json.Unmarshal(payload, &typed); err != nil {
		return accessClaims{}, fmt.Errorf("decode claims: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return accessClaims{}, fmt.Errorf("decode claims: %w", err)
	}

	return accessClaims{Subject: typed.Subject, Roles: typed.RealmAccess.Roles, Raw: raw}, nil
}
