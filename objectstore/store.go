// Package objectstore provides an S3-compatible backend for potatosync,
// built on minio-go. Each principal's objects live under the key prefix
// "<subject>/" in a single bucket. Downloads, and optionally uploads, are
// served with presigned URLs so object bytes never pass through the
// gateway.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// ObjectStore is the subset of the minio-go client the backend uses.
// *minio.Client satisfies it; tests substitute a mock.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

var _ ObjectStore = (*minio.Client)(nil)

// Store implements potatosync.Backend on a bucket.
type Store struct {
	client ObjectStore
	cfg    Config
}

// PresigningStore is a Store that also hands out presigned upload URLs.
type PresigningStore struct {
	*Store
}

var (
	_ potatosync.Backend         = (*Store)(nil)
	_ potatosync.UploadPresigner = (*PresigningStore)(nil)
)

// New connects to the object store and checks the bucket. A missing
// bucket is created when cfg.CreateBucket is set and is an error
// otherwise.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, secure, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: create client: %w", err)
	}

	s := NewFromStore(client, cfg)
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromStore wraps an existing ObjectStore. cfg is not validated beyond
// filling in defaults.
func NewFromStore(client ObjectStore, cfg Config) *Store {
	if cfg.UploadURLExpiry <= 0 {
		cfg.UploadURLExpiry = DefaultUploadURLExpiry
	}
	if cfg.DownloadURLExpiry <= 0 {
		cfg.DownloadURLExpiry = DefaultDownloadURLExpiry
	}
	return &Store{client: client, cfg: cfg}
}

// Backend returns the store as a potatosync.Backend. It implements
// potatosync.UploadPresigner only when presigned uploads are enabled.
func (s *Store) Backend() potatosync.Backend {
	if s.cfg.PresignUploads {
		return &PresigningStore{Store: s}
	}
	return s
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("objectstore: check bucket %s: %w", s.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if !s.cfg.CreateBucket {
		return fmt.Errorf("objectstore: bucket %s does not exist", s.cfg.Bucket)
	}

	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("objectstore: create bucket %s: %w", s.cfg.Bucket, err)
	}
	slog.Info("bucket created", "bucket", s.cfg.Bucket)
	return nil
}

func checkPrefix(prefix string) error {
	if !strings.HasSuffix(prefix, "/") || !potatosync.IsValidNamespace(strings.TrimSuffix(prefix, "/")) {
		return fmt.Errorf("%w: namespace %q", potatosync.ErrInvalidInput, prefix)
	}
	return nil
}

func objectKey(prefix, name string) (string, error) {
	if err := checkPrefix(prefix); err != nil {
		return "", err
	}
	if !potatosync.IsValidName(name) {
		return "", potatosync.ErrInvalidName
	}
	return prefix + name, nil
}

// listDirect lists the objects stored directly under prefix, skipping
// common prefixes.
func (s *Store) listDirect(ctx context.Context, prefix string, fn func(minio.ObjectInfo)) error {
	if err := checkPrefix(prefix); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		fn(obj)
	}
	return ctx.Err()
}

// Count returns the number of objects directly under prefix across all
// listing pages.
func (s *Store) Count(ctx context.Context, prefix string) (int, error) {
	n := 0
	if err := s.listDirect(ctx, prefix, func(minio.ObjectInfo) { n++ }); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns the objects directly under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]potatosync.ObjectInfo, error) {
	owner := strings.TrimSuffix(prefix, "/")
	var objects []potatosync.ObjectInfo
	err := s.listDirect(ctx, prefix, func(obj minio.ObjectInfo) {
		objects = append(objects, potatosync.ObjectInfo{
			Key:     strings.TrimPrefix(obj.Key, prefix),
			Owner:   owner,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// Write streams content to the bucket in a single PutObject of unknown
// size. Content type is derived from the name's extension.
func (s *Store) Write(ctx context.Context, prefix, name string, content io.Reader) (potatosync.WriteResult, error) {
	key, err := objectKey(prefix, name)
	if err != nil {
		return potatosync.WriteResult{}, err
	}

	info, err := s.client.PutObject(ctx, s.cfg.Bucket, key, content, -1, minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return potatosync.WriteResult{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return potatosync.WriteResult{BytesWritten: info.Size, ETag: info.ETag}, nil
}

// Open returns a presigned GET URL for prefix+name. Existence is not
// checked; a missing object fails when the client follows the URL.
func (s *Store) Open(ctx context.Context, prefix, name string) (potatosync.Download, error) {
	key, err := objectKey(prefix, name)
	if err != nil {
		return potatosync.Download{}, err
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", name))

	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.DownloadURLExpiry, params)
	if err != nil {
		return potatosync.Download{}, fmt.Errorf("presign download %s: %w", key, err)
	}

	return potatosync.Download{
		URL:  u,
		Info: potatosync.ObjectInfo{Key: name, Owner: strings.TrimSuffix(prefix, "/")},
	}, nil
}

// Exists reports whether prefix+name is stored.
func (s *Store) Exists(ctx context.Context, prefix, name string) (bool, error) {
	key, err := objectKey(prefix, name)
	if err != nil {
		return false, err
	}
	return s.exists(ctx, key)
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}

// Delete removes prefix+name. Object stores delete missing keys silently,
// so existence is checked first to report potatosync.ErrNotFound.
func (s *Store) Delete(ctx context.Context, prefix, name string) error {
	key, err := objectKey(prefix, name)
	if err != nil {
		return err
	}

	ok, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return potatosync.ErrNotFound
	}

	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// DeleteAll lists every key under prefix, then removes them one by one.
// A listing failure deletes nothing. A removal failure stops the loop and
// returns a *potatosync.PartialDeleteError; earlier removals stay done.
func (s *Store) DeleteAll(ctx context.Context, prefix string) error {
	if err := checkPrefix(prefix); err != nil {
		return err
	}

	var keys []string
	listCtx, cancel := context.WithCancel(ctx)
	for obj := range s.client.ListObjects(listCtx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			cancel()
			return fmt.Errorf("delete all %s: list: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	cancel()

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return &potatosync.PartialDeleteError{Prefix: prefix, Deleted: i, Key: key, Err: err}
		}
		if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return &potatosync.PartialDeleteError{Prefix: prefix, Deleted: i, Key: key, Err: err}
		}
	}

	slog.Debug("namespace deleted", "prefix", prefix, "objects", len(keys))
	return nil
}

// PresignUpload returns a presigned PUT URL for prefix+name.
func (s *PresigningStore) PresignUpload(ctx context.Context, prefix, name string) (*url.URL, error) {
	key, err := objectKey(prefix, name)
	if err != nil {
		return nil, err
	}

	u, err := s.client.PresignedPutObject(ctx, s.cfg.Bucket, key, s.cfg.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload %s: %w", key, err)
	}
	return u, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
