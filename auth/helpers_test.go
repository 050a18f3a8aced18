package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-please-ignore"

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func symmetricClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  sub,
		"role": "user",
		"type": "jwt",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

// authority serves a Keycloak-style realm with a JWKS endpoint.
type authority struct {
	server *httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	keys   jose.JSONWebKeySet
}

const realmPath = "/realms/app"

func newAuthority(t *testing.T, keys map[string]*rsa.PrivateKey) *authority {
	t.Helper()
	a := &authority{}
	a.status.Store(http.StatusOK)
	for kid, k := range keys {
		a.keys.Keys = append(a.keys.Keys, jose.JSONWebKey{
			Key:       &k.PublicKey,
			KeyID:     kid,
			Algorithm: "RS256",
			Use:       "sig",
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+realmPath+"/protocol/openid-connect/certs", func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		status := int(a.status.Load())
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.keys)
	})

	a.server = httptest.NewServer(mux)
	t.Cleanup(a.server.Close)
	return a
}

func (a *authority) realm() string {
	return a.server.URL + realmPath
}

func (a *authority) claims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                sub,
		"iss":                a.realm(),
		"iat":                time.Now().Unix(),
		"exp":                time.Now().Add(time.Hour).Unix(),
		"preferred_username": "alice",
		"realm_access":       map[string]any{"roles": []string{"user", "offline_access"}},
	}
}
