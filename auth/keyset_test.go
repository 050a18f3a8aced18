package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ecKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return k
}

func marshalKeySet(t *testing.T, keys ...jose.JSONWebKey) []byte {
	t.Helper()
	b, err := json.Marshal(jose.JSONWebKeySet{Keys: keys})
	require.NoError(t, err)
	return b
}

func TestParseKeySet_SkipsUnusableKeys(t *testing.T) {
	pub := ecKey(t)
	priv := ecKey(t)

	body := marshalKeySet(t,
		jose.JSONWebKey{Key: &pub.PublicKey, KeyID: "good", Use: "sig", Algorithm: "ES256"},
		jose.JSONWebKey{Key: &ecKey(t).PublicKey, KeyID: "", Use: "sig"},
		jose.JSONWebKey{Key: &ecKey(t).PublicKey, KeyID: "enc", Use: "enc"},
		jose.JSONWebKey{Key: priv, KeyID: "private", Use: "sig"},
		jose.JSONWebKey{Key: []byte("0123456789abcdef"), KeyID: "oct", Use: "sig"},
	)

	// An unknown key type must not poison the rest of the set.
	var doc map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &doc))
	doc["keys"] = append(doc["keys"], json.RawMessage(`{"kty":"unknown","kid":"weird"}`))
	body, err := json.Marshal(doc)
	require.NoError(t, err)

	keys, err := parseKeySet(body)
	require.NoError(t, err)

	assert.Len(t, keys, 1)
	assert.Contains(t, keys, "good")
}

func TestParseKeySet_InvalidDocument(t *testing.T) {
	_, err := parseKeySet([]byte("not json"))
	assert.Error(t, err)
}

type keySetServer struct {
	hits   atomic.Int32
	failed atomic.Bool
	body   []byte
}

func (s *keySetServer) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.hits.Add(1)
	if s.failed.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write(s.body)
}

func newTestCache(t *testing.T, ttl time.Duration) (*KeySetCache, *keySetServer, *time.Time) {
	t.Helper()
	k := ecKey(t)
	ks := &keySetServer{body: marshalKeySet(t, jose.JSONWebKey{Key: &k.PublicKey, KeyID: "k1", Use: "sig"})}
	srv := httptest.NewServer(ks)
	t.Cleanup(srv.Close)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewKeySetCache(srv.URL, "https://issuer", srv.Client(), ttl)
	c.now = func() time.Time { return now }
	return c, ks, &now
}

func TestKeySetCache_RefreshesAfterTTL(t *testing.T) {
	c, srv, now := newTestCache(t, time.Minute)
	ctx := context.Background()

	s, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "https://issuer", s.Issuer)

	*now = now.Add(30 * time.Second)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())

	*now = now.Add(time.Minute)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestKeySetCache_ServesStaleSetWhenRefreshFails(t *testing.T) {
	c, srv, now := newTestCache(t, time.Minute)
	ctx := context.Background()

	first, err := c.Get(ctx)
	require.NoError(t, err)

	srv.failed.Store(true)
	*now = now.Add(2 * time.Minute)

	s, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, s)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestKeySetCache_UnavailableWithoutCachedSet(t *testing.T) {
	c, srv, _ := newTestCache(t, time.Minute)
	srv.failed.Store(true)

	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, ErrKeySetUnavailable)
}

func TestKeySetCache_CancelledCaller(t *testing.T) {
	c, _, _ := newTestCache(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Refresh(ctx)
	assert.ErrorIs(t, err, ErrKeySetUnavailable)
}

func TestKeySet_NilIsEmpty(t *testing.T) {
	var s *KeySet
	_, ok := s.Key("k1")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}
