package auth_test

import (
	"context"
	"crypto/rsa"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/auth"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input     string
		want      auth.Strategy
		wantError bool
	}{
		{input: "symmetric", want: auth.StrategySymmetric},
		{input: "JWKS", want: auth.StrategyJWKS},
		{input: " introspection ", want: auth.StrategyIntrospection},
		{input: "", wantError: true},
		{input: "oauth", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := auth.ParseStrategy(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  auth.Config
	}{
		{name: "no strategy", cfg: auth.Config{}},
		{name: "symmetric without secret", cfg: auth.Config{Strategy: auth.StrategySymmetric}},
		{name: "jwks without authority", cfg: auth.Config{Strategy: auth.StrategyJWKS}},
		{name: "introspection without client", cfg: auth.Config{Strategy: auth.StrategyIntrospection}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func TestAuthenticator_Symmetric(t *testing.T) {
	a, err := auth.New(auth.Config{
		Strategy:  auth.StrategySymmetric,
		Symmetric: auth.SymmetricConfig{Secret: testSecret},
	})
	require.NoError(t, err)
	assert.Equal(t, auth.StrategySymmetric, a.Strategy())

	p, err := a.Authenticate(context.Background(), bearer(signHS256(t, testSecret, symmetricClaims("u1"))))
	require.NoError(t, err)
	assert.Equal(t, "u1", p.Subject())

	_, err = a.Authenticate(context.Background(), http.Header{})
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = a.Authenticate(context.Background(), bearer("nope"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticator_JWKS(t *testing.T) {
	key := generateRSAKey(t)
	authority := newAuthority(t, map[string]*rsa.PrivateKey{"k1": key})

	a, err := auth.New(auth.Config{
		Strategy:   auth.StrategyJWKS,
		JWKS:       auth.JWKSConfig{Authority: authority.realm()},
		HTTPClient: authority.server.Client(),
	})
	require.NoError(t, err)

	p, err := a.Authenticate(context.Background(), bearer(signRS256(t, key, "k1", authority.claims("u1"))))
	require.NoError(t, err)
	assert.Equal(t, "u1", p.Subject())
	assert.True(t, p.HasRole("user"))
}

func TestAuthenticator_Introspection(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusOK, `{"active": true, "sub": "u1"}`)

	a, err := auth.New(auth.Config{
		Strategy: auth.StrategyIntrospection,
		Introspection: auth.IntrospectionConfig{
			URL:          srv.URL,
			ClientID:     introspectClient,
			ClientSecret: introspectSecret,
		},
	})
	require.NoError(t, err)

	p, err := a.Authenticate(context.Background(), bearer("opaque"))
	require.NoError(t, err)
	assert.Equal(t, "u1", p.Subject())
}

type stubValidator struct {
	token string
	err   error
}

func (s *stubValidator) Validate(_ context.Context, token string) (potatosync.Principal, error) {
	s.token = token
	if s.err != nil {
		return potatosync.Principal{}, s.err
	}
	return potatosync.NewPrincipal("u1", nil, nil)
}

func TestAuthenticator_PassesTokenToValidator(t *testing.T) {
	stub := &stubValidator{}
	a := auth.NewAuthenticator(auth.StrategySymmetric, stub)

	_, err := a.Authenticate(context.Background(), bearer("  abc.def.ghi "))
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", stub.token)
}

func TestAuthenticator_TransientFailure(t *testing.T) {
	stub := &stubValidator{err: auth.ErrIntrospectionUnavailable}
	a := auth.NewAuthenticator(auth.StrategyIntrospection, stub)

	p, err := a.Authenticate(context.Background(), bearer("opaque"))
	assert.ErrorIs(t, err, auth.ErrIntrospectionUnavailable)
	assert.True(t, p.IsZero())

	kind, ok := auth.KindOf(err)
	require.True(t, ok)
	assert.True(t, kind.Transient())
}

func TestError_Is(t *testing.T) {
	err := &auth.Error{Kind: auth.UnknownKey}
	assert.ErrorIs(t, err, auth.ErrUnknownKey)
	assert.NotErrorIs(t, err, auth.ErrInvalidToken)
	assert.Equal(t, "UnknownKey", auth.UnknownKey.String())
	assert.False(t, auth.InvalidToken.Transient())
}
