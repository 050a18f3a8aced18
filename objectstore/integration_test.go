//go:build integration

package objectstore_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/objectstore"
)

const (
	minioImage  = "docker.io/minio/minio:latest"
	minioUser   = "minioadmin"
	minioSecret = "minioadmin"
)

func startMinIO(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcminio.Run(ctx, minioImage,
		tcminio.WithUsername(minioUser),
		tcminio.WithPassword(minioSecret),
	)
	require.NoError(t, err, "failed to start minio container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return endpoint
}

func newIntegrationStore(t *testing.T, endpoint string, presign bool) *objectstore.Store {
	t.Helper()
	store, err := objectstore.New(context.Background(), objectstore.Config{
		Endpoint:       endpoint,
		AccessKey:      minioUser,
		SecretKey:      minioSecret,
		Bucket:         fmt.Sprintf("files-%d", time.Now().UnixNano()%100000),
		CreateBucket:   true,
		PresignUploads: presign,
	})
	require.NoError(t, err)
	return store
}

func TestIntegration_MissingBucketWithoutCreate(t *testing.T) {
	endpoint := startMinIO(t)

	_, err := objectstore.New(context.Background(), objectstore.Config{
		Endpoint:  endpoint,
		AccessKey: minioUser,
		SecretKey: minioSecret,
		Bucket:    "does-not-exist",
	})
	assert.Error(t, err)
}

func TestIntegration_Lifecycle(t *testing.T) {
	endpoint := startMinIO(t)
	store := newIntegrationStore(t, endpoint, false)
	ctx := context.Background()

	n, err := store.Count(ctx, "u1/")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := range 3 {
		_, err := store.Write(ctx, "u1/", fmt.Sprintf("file-%d.txt", i), strings.NewReader("hello"))
		require.NoError(t, err)
	}
	_, err = store.Write(ctx, "u2/", "other.txt", strings.NewReader("other"))
	require.NoError(t, err)

	n, err = store.Count(ctx, "u1/")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	objects, err := store.List(ctx, "u1/")
	require.NoError(t, err)
	assert.Len(t, objects, 3)

	ok, err := store.Exists(ctx, "u1/", "file-0.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := store.Open(ctx, "u1/", "file-0.txt")
	require.NoError(t, err)
	require.True(t, d.IsRedirect())

	resp, err := http.Get(d.URL.String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete(ctx, "u1/", "file-0.txt"))
	assert.ErrorIs(t, store.Delete(ctx, "u1/", "file-0.txt"), potatosync.ErrNotFound)

	require.NoError(t, store.DeleteAll(ctx, "u1/"))
	require.NoError(t, store.DeleteAll(ctx, "u1/"))

	n, err = store.Count(ctx, "u1/")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Count(ctx, "u2/")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIntegration_PresignedUpload(t *testing.T) {
	endpoint := startMinIO(t)
	store := newIntegrationStore(t, endpoint, true)
	ctx := context.Background()

	presigner, ok := store.Backend().(potatosync.UploadPresigner)
	require.True(t, ok)

	u, err := presigner.PresignUpload(ctx, "u1/", "report.pdf")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, u.String(), strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := store.Count(ctx, "u1/")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
