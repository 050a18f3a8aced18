package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broodroosterdev/potatosync-files/auth"
)

const (
	introspectClient = "potatosync-files"
	introspectSecret = "client-secret"
)

func newIntrospectionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != introspectClient || pass != introspectSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost || r.FormValue("token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newIntrospectionValidator(t *testing.T, srv *httptest.Server) *auth.IntrospectionValidator {
	t.Helper()
	v, err := auth.NewIntrospectionValidator(auth.IntrospectionConfig{
		URL:          srv.URL + "/realms/app/protocol/openid-connect/token/introspect",
		ClientID:     introspectClient,
		ClientSecret: introspectSecret,
	}, srv.Client())
	require.NoError(t, err)
	return v
}

func TestNewIntrospectionValidator_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  auth.IntrospectionConfig
	}{
		{name: "empty", cfg: auth.IntrospectionConfig{}},
		{name: "missing secret", cfg: auth.IntrospectionConfig{URL: "http://localhost/introspect", ClientID: "c"}},
		{name: "missing client", cfg: auth.IntrospectionConfig{URL: "http://localhost/introspect", ClientSecret: "s"}},
		{name: "relative url", cfg: auth.IntrospectionConfig{URL: "introspect", ClientID: "c", ClientSecret: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewIntrospectionValidator(tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestIntrospectionValidator_Active(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusOK, `{
		"active": true,
		"sub": "3f6c1d7e",
		"username": "alice",
		"aud": "account",
		"exp": 1900000000,
		"realm_access": {"roles": ["user", "admin"]}
	}`)
	v := newIntrospectionValidator(t, srv)

	p, err := v.Validate(context.Background(), "opaque-token")
	require.NoError(t, err)
	assert.Equal(t, "3f6c1d7e", p.Subject())
	assert.Equal(t, []string{"user", "admin"}, p.Roles())
	assert.Equal(t, "alice", p.Claims()["username"])
}

func TestIntrospectionValidator_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "inactive", status: http.StatusOK, body: `{"active": false}`, wantErr: auth.ErrInvalidToken},
		{name: "inactive with malformed tail", status: http.StatusOK, body: `{"active": false, "sub": `, wantErr: auth.ErrInvalidToken},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: auth.ErrInvalidToken},
		{name: "active without subject", status: http.StatusOK, body: `{"active": true}`, wantErr: auth.ErrInvalidToken},
		{name: "active with unsafe subject", status: http.StatusOK, body: `{"active": true, "sub": "../other"}`, wantErr: auth.ErrInvalidToken},
		{name: "authority error", status: http.StatusInternalServerError, body: `{}`, wantErr: auth.ErrIntrospectionUnavailable},
		{name: "authority rejects client", status: http.StatusUnauthorized, body: `{}`, wantErr: auth.ErrIntrospectionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newIntrospectionServer(t, tt.status, tt.body)
			v := newIntrospectionValidator(t, srv)

			p, err := v.Validate(context.Background(), "opaque-token")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, p.IsZero())
		})
	}
}

func TestIntrospectionValidator_WrongClientCredentials(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusOK, `{"active": true, "sub": "u1"}`)
	v, err := auth.NewIntrospectionValidator(auth.IntrospectionConfig{
		URL:          srv.URL,
		ClientID:     introspectClient,
		ClientSecret: "wrong",
	}, srv.Client())
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), "opaque-token")
	assert.ErrorIs(t, err, auth.ErrIntrospectionUnavailable)
}

func TestIntrospectionValidator_Unreachable(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusOK, `{"active": true, "sub": "u1"}`)
	v := newIntrospectionValidator(t, srv)
	srv.Close()

	_, err := v.Validate(context.Background(), "opaque-token")
	assert.ErrorIs(t, err, auth.ErrIntrospectionUnavailable)
}
