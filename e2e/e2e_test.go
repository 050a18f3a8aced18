package e2e_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broodroosterdev/potatosync-files/clientcli"
)

func writeLocalFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestE2E_BasicCRUD(t *testing.T) {
	srv := startServer(t, testFileLimit)
	c := srv.client(t, "user-1")
	ctx := t.Context()

	t.Run("empty account", func(t *testing.T) {
		q, err := c.Quota(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, q.Used)
		assert.Equal(t, testFileLimit, q.Limit)

		list, err := c.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list.Items)
	})

	t.Run("upload", func(t *testing.T) {
		local := writeLocalFile(t, "note.txt", "hello potato")
		result, err := c.Upload(ctx, clientcli.UploadOptions{LocalPath: local})
		require.NoError(t, err)
		assert.Equal(t, "note.txt", result.Name)
		assert.Equal(t, int64(len("hello potato")), result.Size)
		assert.NotEmpty(t, result.ETag)
		assert.False(t, result.Presigned)
	})

	t.Run("download", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")
		result, body, err := c.Download(ctx, clientcli.DownloadOptions{Name: "note.txt", LocalPath: out})
		require.NoError(t, err)
		assert.Nil(t, body)
		assert.False(t, result.Presigned)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "hello potato", string(data))
	})

	t.Run("download to stream", func(t *testing.T) {
		_, body, err := c.Download(ctx, clientcli.DownloadOptions{Name: "note.txt", LocalPath: "-"})
		require.NoError(t, err)
		defer body.Close()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "hello potato", string(data))
	})

	t.Run("overwrite keeps count", func(t *testing.T) {
		local := writeLocalFile(t, "note.txt", "updated")
		_, err := c.Upload(ctx, clientcli.UploadOptions{LocalPath: local})
		require.NoError(t, err)

		q, err := c.Quota(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, q.Used)
	})

	t.Run("list", func(t *testing.T) {
		list, err := c.List(ctx)
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "note.txt", list.Items[0].Name)
		assert.Equal(t, int64(len("updated")), list.Items[0].Size)
	})

	t.Run("delete", func(t *testing.T) {
		results, err := c.Delete(ctx, clientcli.DeleteOptions{Names: []string{"note.txt", "missing.txt"}})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].Deleted)
		assert.ErrorIs(t, results[1].Err, clientcli.ErrNotFound)

		_, _, err = c.Download(ctx, clientcli.DownloadOptions{Name: "note.txt", LocalPath: filepath.Join(t.TempDir(), "x")})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)
	})
}

func TestE2E_FileLimit(t *testing.T) {
	srv := startServer(t, 2)
	c := srv.client(t, "user-1")
	ctx := t.Context()

	for _, name := range []string{"a.png", "b.png"} {
		_, err := c.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, name, name)})
		require.NoError(t, err, name)
	}

	_, err := c.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "c.png", "c")})
	require.ErrorIs(t, err, clientcli.ErrLimitExceeded)

	// The check counts objects, so replacing one at the limit is rejected too.
	_, err = c.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "a.png", "new")})
	require.ErrorIs(t, err, clientcli.ErrLimitExceeded)

	q, err := c.Quota(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Used)
	assert.Equal(t, 0, q.Remaining())

	require.NoError(t, c.DeleteAll(ctx))

	q, err = c.Quota(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Used)

	_, err = c.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "c.png", "c")})
	require.NoError(t, err)
}

func TestE2E_NamespaceIsolation(t *testing.T) {
	srv := startServer(t, testFileLimit)
	alice := srv.client(t, "alice")
	bob := srv.client(t, "bob")
	ctx := t.Context()

	_, err := alice.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "secret.txt", "alice only")})
	require.NoError(t, err)

	t.Run("other user cannot see the file", func(t *testing.T) {
		list, err := bob.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list.Items)

		_, _, err = bob.Download(ctx, clientcli.DownloadOptions{Name: "secret.txt", LocalPath: "-"})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)
	})

	t.Run("same name differs per user", func(t *testing.T) {
		_, err := bob.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "secret.txt", "bob's")})
		require.NoError(t, err)

		_, body, err := alice.Download(ctx, clientcli.DownloadOptions{Name: "secret.txt", LocalPath: "-"})
		require.NoError(t, err)
		defer body.Close()
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "alice only", string(data))
	})

	t.Run("delete all only touches the caller", func(t *testing.T) {
		require.NoError(t, bob.DeleteAll(ctx))

		q, err := alice.Quota(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, q.Used)
	})
}

func TestE2E_Auth(t *testing.T) {
	srv := startServer(t, testFileLimit)
	ctx := t.Context()

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "user-1", "type": "jwt", "exp": 4102444800,
			}).SignedString([]byte("other-secret"))
			require.NoError(t, err)
			return s
		}()},
		{name: "expired", token: signToken(t, jwt.MapClaims{"sub": "user-1", "type": "jwt", "exp": 1})},
		{name: "refresh token", token: signToken(t, jwt.MapClaims{"sub": "user-1", "type": "refresh", "exp": 4102444800})},
		{name: "no subject", token: signToken(t, jwt.MapClaims{"type": "jwt", "exp": 4102444800})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := srv.clientWithToken(t, tt.token)

			_, err := c.Quota(ctx)
			assert.ErrorIs(t, err, clientcli.ErrUnauthorized)

			_, err = c.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "a.txt", "a")})
			assert.ErrorIs(t, err, clientcli.ErrUnauthorized)
		})
	}
}

func TestE2E_InvalidName(t *testing.T) {
	srv := startServer(t, testFileLimit)
	c := srv.client(t, "user-1")

	_, err := c.Upload(t.Context(), clientcli.UploadOptions{
		LocalPath: writeLocalFile(t, "a.txt", "a"),
		Name:      "../escape.txt",
	})
	assert.ErrorIs(t, err, clientcli.ErrInvalidName)
}

func TestE2E_IdentityProviderSubjects(t *testing.T) {
	srv := startServer(t, testFileLimit)
	ctx := t.Context()

	for _, subject := range []string{"alice@example.com", "auth0|123", "user_1"} {
		t.Run(subject, func(t *testing.T) {
			c := srv.client(t, subject)

			q, err := c.Quota(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, q.Used)

			_, err = c.Upload(ctx, clientcli.UploadOptions{LocalPath: writeLocalFile(t, "report.pdf", subject)})
			require.NoError(t, err)

			_, body, err := c.Download(ctx, clientcli.DownloadOptions{Name: "report.pdf", LocalPath: "-"})
			require.NoError(t, err)
			defer body.Close()
			data, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, subject, string(data))

			list, err := c.List(ctx)
			require.NoError(t, err)
			require.Len(t, list.Items, 1)

			results, err := c.Delete(ctx, clientcli.DeleteOptions{Names: []string{"report.pdf"}})
			require.NoError(t, err)
			assert.True(t, results[0].Deleted)
		})
	}
}
