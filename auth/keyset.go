package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

const maxKeySetSize = 1 << 20

// KeySet is an immutable snapshot of the authority's signing keys.
type KeySet struct {
	Issuer    string
	FetchedAt time.Time
	keys      map[string]any
}

// Key returns the public key registered under kid.
func (s *KeySet) Key(kid string) (any, bool) {
	if s == nil {
		return nil, false
	}
	k, ok := s.keys[kid]
	return k, ok
}

// Len returns the number of usable keys in the set.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// KeySetCache fetches the authority's JWKS document and keeps the parsed
// KeySet for TTL. Concurrent refreshes are collapsed into one request and
// readers never block on each other.
//
// A failed refresh keeps serving the previous set. Only a cache that has
// never loaded successfully reports ErrKeySetUnavailable.
type KeySetCache struct {
	url    string
	issuer string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	current atomic.Pointer[KeySet]
	group   singleflight.Group
}

func NewKeySetCache(certsURL, issuer string, client *http.Client, ttl time.Duration) *KeySetCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &KeySetCache{
		url:    certsURL,
		issuer: issuer,
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached KeySet, refreshing it when it is older than TTL.
// A TTL of zero or less caches forever.
func (c *KeySetCache) Get(ctx context.Context) (*KeySet, error) {
	s := c.current.Load()
	if s != nil && (c.ttl <= 0 || c.now().Sub(s.FetchedAt) < c.ttl) {
		return s, nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		if s != nil {
			slog.Warn("jwks refresh failed, serving cached key set", "url", c.url, "error", err)
			return s, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh fetches the key set unconditionally and replaces the cached one.
func (c *KeySetCache) Refresh(ctx context.Context) (*KeySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KeySetUnavailable, Err: err}
	}

	// The fetch is shared with other callers, so it must not die with the
	// first caller's context. The client timeout still bounds it.
	shared := context.WithoutCancel(ctx)

	ch := c.group.DoChan("jwks", func() (any, error) {
		s, err := c.fetch(shared)
		if err != nil {
			return nil, err
		}
		c.current.Store(s)
		slog.Debug("jwks key set loaded", "url", c.url, "keys", s.Len())
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KeySetUnavailable, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

func (c *KeySetCache) fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, newError(KeySetUnavailable, "build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newError(KeySetUnavailable, "fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(KeySetUnavailable, "fetch jwks: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetSize))
	if err != nil {
		return nil, newError(KeySetUnavailable, "read jwks: %w", err)
	}

	keys, err := parseKeySet(body)
	if err != nil {
		return nil, &Error{Kind: KeySetUnavailable, Err: err}
	}

	return &KeySet{Issuer: c.issuer, FetchedAt: c.now(), keys: keys}, nil
}

// parseKeySet decodes a JWKS document. Keys are parsed one at a time so a
// single unsupported key does not invalidate the rest of the set. Keys
// without a kid, private or symmetric keys, and keys not meant for
// signatures are skipped.
func parseKeySet(body []byte) (map[string]any, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}

	keys := make(map[string]any, len(doc.Keys))
	for _, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			slog.Debug("skipping unsupported jwk", "error", err)
			continue
		}
		if jwk.KeyID == "" || !jwk.IsPublic() {
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		keys[jwk.KeyID] = jwk.Key
	}
	return keys, nil
}
