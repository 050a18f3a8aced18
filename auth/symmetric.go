package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// DefaultTokenType is the "type" claim carried by access tokens issued with
// the shared secret.
const DefaultTokenType = "jwt"

// SymmetricConfig configures validation of HMAC-signed tokens.
type SymmetricConfig struct {
	Secret string
	// TokenType is the required value of the "type" claim. Tokens of other
	// kinds issued by the same authority (e.g. refresh tokens) are rejected.
	TokenType string
}

// SymmetricValidator verifies tokens signed with a shared secret.
//
// Only HS256, HS384 and HS512 are accepted so a token signed with an
// asymmetric algorithm can never be checked against the secret.
type SymmetricValidator struct {
	secret    []byte
	tokenType string
	parser    *jwt.Parser
}

func NewSymmetricValidator(cfg SymmetricConfig) (*SymmetricValidator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("new symmetric validator: secret cannot be empty")
	}
	tokenType := cfg.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return &SymmetricValidator{
		secret:    []byte(cfg.Secret),
		tokenType: tokenType,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Validate verifies signature and expiry, checks the token type and returns
// a Principal with the "sub" and "role" claims.
func (v *SymmetricValidator) Validate(_ context.Context, token string) (potatosync.Principal, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: InvalidToken, Err: err}
	}

	if typ, _ := claims["type"].(string); typ != v.tokenType {
		return potatosync.Principal{}, newError(InvalidToken, "token type %q is not %q", typ, v.tokenType)
	}

	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)

	p, err := potatosync.NewPrincipal(sub, []string{role}, claims)
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: InvalidToken, Err: err}
	}
	return p, nil
}
