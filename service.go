package potatosync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Backend defines the namespaced object storage operations the gateway
// needs. Implementations can use the local filesystem, an S3-compatible
// object store, or anything else that can list by prefix.
//
// Every method receives the namespace prefix of the caller (see
// Principal.Namespace) and, where relevant, a name that already passed
// IsValidName. Implementations must never touch keys outside prefix.
//
// All methods accept a context for cancellation and timeout control.
type Backend interface {
	// Count returns the number of objects stored directly under prefix.
	// A namespace that was never written to counts as zero; Count must not
	// create it.
	Count(ctx context.Context, prefix string) (int, error)

	// Write stores content as prefix+name, creating the namespace first if
	// needed. It must consume content incrementally and must not expose a
	// partially written object when ctx is cancelled or the copy fails.
	Write(ctx context.Context, prefix, name string, content io.Reader) (WriteResult, error)

	// Open makes an object available for download.
	//
	// Returns:
	//   - Download with Content set: the caller streams and closes it
	//     (ErrNotFound if the object does not exist)
	//   - Download with URL set: a short-lived presigned URL; existence is
	//     not checked and becomes the object store's concern at GET time
	Open(ctx context.Context, prefix, name string) (Download, error)

	// Delete removes a single object. Returns ErrNotFound if it does not
	// exist.
	Delete(ctx context.Context, prefix, name string) error

	// DeleteAll removes every object under prefix. An empty or missing
	// namespace is not an error. Implementations that delete one object at
	// a time must stop at the first failure and return a
	// *PartialDeleteError.
	DeleteAll(ctx context.Context, prefix string) error

	// Exists reports whether prefix+name is stored.
	Exists(ctx context.Context, prefix, name string) (bool, error)

	// List returns the objects stored directly under prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// UploadPresigner is implemented by backends that let clients upload
// directly to storage. When the gateway's backend implements it, uploads
// return a presigned PUT URL instead of reading the request body.
type UploadPresigner interface {
	PresignUpload(ctx context.Context, prefix, name string) (*url.URL, error)
}

// Authenticator turns request headers into a verified Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, header http.Header) (Principal, error)
}

// GatewayConfig holds configuration options for Gateway.
type GatewayConfig struct {
	// FileLimit is the number of objects a principal may hold.
	FileLimit int
}

// Gateway exposes the per-user storage operations. It is safe for
// concurrent use.
//
// Quota checks and writes are not transactional: two concurrent uploads by
// the same principal may both pass the check and transiently exceed the
// limit by the number of racing requests.
type Gateway struct {
	authn   Authenticator
	backend Backend
	quota   QuotaGate
}

func NewGateway(authn Authenticator, backend Backend, cfg GatewayConfig) (*Gateway, error) {
	if authn == nil {
		return nil, errors.New("new gateway: authenticator is required")
	}
	if backend == nil {
		return nil, errors.New("new gateway: backend is required")
	}
	if cfg.FileLimit < 0 {
		return nil, fmt.Errorf("new gateway: file limit must be non-negative, got %d", cfg.FileLimit)
	}
	return &Gateway{
		authn:   authn,
		backend: backend,
		quota:   QuotaGate{Limit: cfg.FileLimit},
	}, nil
}

// Authenticate establishes the caller's identity. It must succeed before any
// other Gateway method is called for a request.
func (g *Gateway) Authenticate(ctx context.Context, header http.Header) (Principal, error) {
	return g.authn.Authenticate(ctx, header)
}

// QuotaStatus returns the principal's current object count and limit.
func (g *Gateway) QuotaStatus(ctx context.Context, p Principal) (QuotaStatus, error) {
	if err := checkCall(ctx, p); err != nil {
		return QuotaStatus{}, fmt.Errorf("quota status: %w", err)
	}

	status, err := g.quota.Status(ctx, p, g.backend)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("quota status: %w", err)
	}
	return status, nil
}

// RequestUpload stores a new object for the principal, or delegates the
// upload to the client when the backend supports presigned uploads.
//
// The method performs the following steps:
//  1. Validates name using IsValidName
//  2. Checks the quota; the upload is rejected with ErrExceededLimit
//     before anything is written
//  3. Returns a presigned PUT URL if the backend is an UploadPresigner,
//     otherwise streams content to the backend
//
// content is not read when the upload is delegated and may be nil in that
// case.
func (g *Gateway) RequestUpload(ctx context.Context, p Principal, name string, content io.Reader) (UploadResult, error) {
	if err := checkCall(ctx, p); err != nil {
		return UploadResult{}, fmt.Errorf("request upload: %w", err)
	}

	if !IsValidName(name) {
		return UploadResult{}, fmt.Errorf("request upload %q: %w", name, ErrInvalidName)
	}

	decision, err := g.quota.Check(ctx, p, g.backend)
	if err != nil {
		return UploadResult{}, fmt.Errorf("request upload %s: %w", name, err)
	}
	if !decision.Allowed {
		return UploadResult{}, fmt.Errorf("request upload %s: %d of %d used: %w", name, decision.Used, g.quota.Limit, ErrExceededLimit)
	}

	if presigner, ok := g.backend.(UploadPresigner); ok {
		u, presignErr := presigner.PresignUpload(ctx, p.Namespace(), name)
		if presignErr != nil {
			return UploadResult{}, fmt.Errorf("request upload %s: presign failed: %w", name, presignErr)
		}
		return UploadResult{URL: u}, nil
	}

	if content == nil {
		return UploadResult{}, fmt.Errorf("request upload %s: %w: content cannot be empty", name, ErrInvalidInput)
	}

	res, err := g.backend.Write(ctx, p.Namespace(), name, content)
	if err != nil {
		return UploadResult{}, fmt.Errorf("request upload %s: write failed: %w", name, err)
	}

	return UploadResult{BytesWritten: res.BytesWritten, ETag: res.ETag}, nil
}

// RequestDownload returns either the object's content or a presigned URL,
// depending on the backend. The caller must close Download.Content when set.
func (g *Gateway) RequestDownload(ctx context.Context, p Principal, name string) (Download, error) {
	if err := checkCall(ctx, p); err != nil {
		return Download{}, fmt.Errorf("request download: %w", err)
	}

	if !IsValidName(name) {
		return Download{}, fmt.Errorf("request download %q: %w", name, ErrInvalidName)
	}

	d, err := g.backend.Open(ctx, p.Namespace(), name)
	if err != nil {
		return Download{}, fmt.Errorf("request download %s: %w", name, err)
	}
	return d, nil
}

// DeleteOne removes a single object. Deleting an object that does not exist
// returns ErrNotFound on every backend.
func (g *Gateway) DeleteOne(ctx context.Context, p Principal, name string) error {
	if err := checkCall(ctx, p); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if !IsValidName(name) {
		return fmt.Errorf("delete object %q: %w", name, ErrInvalidName)
	}

	if err := g.backend.Delete(ctx, p.Namespace(), name); err != nil {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

// DeleteAll removes every object in the principal's namespace. It succeeds
// on an empty namespace. On a partial failure the returned error matches
// ErrPartialDelete and nothing is rolled back.
func (g *Gateway) DeleteAll(ctx context.Context, p Principal) error {
	if err := checkCall(ctx, p); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	if err := g.backend.DeleteAll(ctx, p.Namespace()); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

// List returns the objects in the principal's namespace.
func (g *Gateway) List(ctx context.Context, p Principal) ([]ObjectInfo, error) {
	if err := checkCall(ctx, p); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	objects, err := g.backend.List(ctx, p.Namespace())
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return objects, nil
}

func checkCall(ctx context.Context, p Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.IsZero() {
		return fmt.Errorf("%w: principal is required", ErrInvalidInput)
	}
	return nil
}
