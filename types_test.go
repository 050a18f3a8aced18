package potatosync_test

import (
	"testing"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrincipal(t *testing.T) {
	tests := []struct {
		name      string
		subject   string
		wantError bool
	}{
		{name: "uuid subject", subject: "3f6c1d7e-0c2b-4d8e-9a51-2f1e0b7c9d4a", wantError: false},
		{name: "email subject", subject: "alice@example.com", wantError: false},
		{name: "auth0 subject", subject: "auth0|123", wantError: false},
		{name: "underscore subject", subject: "user_1", wantError: false},
		{name: "hidden subject", subject: ".tmp", wantError: true},
		{name: "control character", subject: "a\nb", wantError: true},
		{name: "empty subject", subject: "", wantError: true},
		{name: "single dot", subject: ".", wantError: true},
		{name: "double dot", subject: "..", wantError: true},
		{name: "slash", subject: "a/b", wantError: true},
		{name: "backslash", subject: `a\b`, wantError: true},
		{name: "NUL", subject: "a\x00", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := potatosync.NewPrincipal(tt.subject, nil, nil)
			if tt.wantError {
				assert.Error(t, err)
				assert.True(t, p.IsZero())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.subject, p.Subject())
			assert.Equal(t, tt.subject+"/", p.Namespace())
		})
	}
}

func TestPrincipal_Roles(t *testing.T) {
	p, err := potatosync.NewPrincipal("u1", []string{"user", "", "admin", "user"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "admin"}, p.Roles())
	assert.True(t, p.HasRole("admin"))
	assert.False(t, p.HasRole("owner"))

	roles := p.Roles()
	roles[0] = "mutated"
	assert.Equal(t, []string{"user", "admin"}, p.Roles(), "roles must not be mutable through the accessor")
}

func TestPrincipal_ClaimsAreCopied(t *testing.T) {
	claims := map[string]any{"email": "u1@example.com"}
	p, err := potatosync.NewPrincipal("u1", nil, claims)
	require.NoError(t, err)

	claims["email"] = "changed"
	assert.Equal(t, "u1@example.com", p.Claims()["email"])

	got := p.Claims()
	got["email"] = "changed again"
	assert.Equal(t, "u1@example.com", p.Claims()["email"])
}

func TestPrincipal_ZeroValue(t *testing.T) {
	var p potatosync.Principal
	assert.True(t, p.IsZero())
	assert.Empty(t, p.Roles())
	assert.Nil(t, p.Claims())
}
