package potatosync

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"time"
)

// Principal is the verified identity of a caller. It is created once per
// request by an authentication strategy and is never mutated afterwards.
type Principal struct {
	subject string
	roles   []string
	claims  map[string]any
}

// NewPrincipal validates the subject and returns an immutable Principal.
// The subject must be non-empty and usable as a single namespace segment.
func NewPrincipal(subject string, roles []string, claims map[string]any) (Principal, error) {
	if subject == "" {
		return Principal{}, errors.New("new principal: subject cannot be empty")
	}
	if !IsValidNamespace(subject) {
		return Principal{}, fmt.Errorf("new principal: subject %q cannot be used as a namespace", subject)
	}

	var rs []string
	for _, r := range roles {
		if r != "" && !slices.Contains(rs, r) {
			rs = append(rs, r)
		}
	}

	return Principal{
		subject: subject,
		roles:   rs,
		claims:  maps.Clone(claims),
	}, nil
}

// Subject returns the stable subject identifier.
func (p Principal) Subject() string { return p.subject }

// Roles returns a copy of the extracted roles. Roles are not enforced.
func (p Principal) Roles() []string { return slices.Clone(p.roles) }

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool { return slices.Contains(p.roles, role) }

// Claims returns a shallow copy of the strategy-specific raw claims.
func (p Principal) Claims() map[string]any { return maps.Clone(p.claims) }

// Namespace returns the storage prefix reserved for this principal.
func (p Principal) Namespace() string { return p.subject + "/" }

// IsZero reports whether p was never constructed by NewPrincipal.
func (p Principal) IsZero() bool { return p.subject == "" }

// QuotaStatus reports how many objects a principal holds and may hold.
type QuotaStatus struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// QuotaDecision is the result of a quota check before an upload.
type QuotaDecision struct {
	Allowed bool
	Used    int
}

// ObjectInfo describes one object in a namespace.
type ObjectInfo struct {
	// Key is the object name inside the namespace, without the prefix.
	Key string
	// Owner is the subject owning the namespace.
	Owner   string
	Size    int64
	ModTime time.Time
}

// WriteResult is returned by a Backend after a stream was persisted.
type WriteResult struct {
	BytesWritten int64
	ETag         string
}

// Download is the result of Backend.Open. Exactly one of URL or Content is
// set: object stores hand out a presigned URL without checking existence,
// while the local filesystem returns the object itself.
type Download struct {
	URL     *url.URL
	Content io.ReadSeekCloser
	Info    ObjectInfo
}

// IsRedirect reports whether the caller must fetch the object from URL.
func (d Download) IsRedirect() bool { return d.URL != nil }

// UploadResult is the result of Gateway.RequestUpload. Exactly one of URL or
// the written fields is meaningful: URL is set when the upload was delegated
// to the client through a presigned PUT.
type UploadResult struct {
	URL          *url.URL
	BytesWritten int64
	ETag         string
}

// IsDelegated reports whether the client still has to PUT the object to URL.
func (u UploadResult) IsDelegated() bool { return u.URL != nil }
