package e2e_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/auth"
	"github.com/broodroosterdev/potatosync-files/clientcli"
	"github.com/broodroosterdev/potatosync-files/filesystem"
	potatohttp "github.com/broodroosterdev/potatosync-files/http"
)

const (
	testSecret    = "e2e-secret"
	testFileLimit = 3
)

// testServer is a gateway served over HTTP with a local backend and
// symmetric token validation.
type testServer struct {
	URL string
}

// startServer wires the same components `potatosync-files serve` does and
// serves them with httptest.
func startServer(t *testing.T, limit int) *testServer {
	t.Helper()

	store, err := filesystem.Open(t.TempDir(), 4)
	require.NoError(t, err, "open store")
	t.Cleanup(func() { _ = store.Close() })

	authn, err := auth.New(auth.Config{
		Strategy:  auth.StrategySymmetric,
		Symmetric: auth.SymmetricConfig{Secret: testSecret},
	})
	require.NoError(t, err, "new authenticator")

	gateway, err := potatosync.NewGateway(authn, store, potatosync.GatewayConfig{FileLimit: limit})
	require.NoError(t, err, "new gateway")

	handler := potatohttp.NewHandler(&potatohttp.HandlerConfig{MaxUploadSize: 1 << 20}, gateway)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)

	return &testServer{URL: srv.URL}
}

// token signs an access token for subject.
func token(t *testing.T, subject string) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{
		"sub":  subject,
		"role": "user",
		"type": auth.DefaultTokenType,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err, "sign token")
	return s
}

// client returns a client authenticated as subject.
func (s *testServer) client(t *testing.T, subject string) *clientcli.Client {
	t.Helper()
	return s.clientWithToken(t, token(t, subject))
}

func (s *testServer) clientWithToken(t *testing.T, tok string) *clientcli.Client {
	t.Helper()
	c, err := clientcli.New(&clientcli.Config{Endpoint: s.URL, Token: tok}, clientcli.WithTimeout(10*time.Second))
	require.NoError(t, err, "new client")
	return c
}
