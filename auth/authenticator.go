package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// DefaultHTTPTimeout bounds requests to the authority.
const DefaultHTTPTimeout = 10 * time.Second

// Strategy selects how bearer tokens are validated.
type Strategy string

const (
	StrategySymmetric     Strategy = "symmetric"
	StrategyJWKS          Strategy = "jwks"
	StrategyIntrospection Strategy = "introspection"
)

func (s Strategy) String() string { return string(s) }

// ParseStrategy parses a strategy name case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySymmetric:
		return StrategySymmetric, nil
	case StrategyJWKS:
		return StrategyJWKS, nil
	case StrategyIntrospection:
		return StrategyIntrospection, nil
	default:
		return "", fmt.Errorf("invalid auth strategy: %s (must be symmetric, jwks, or introspection)", s)
	}
}

// Validator turns a raw bearer token into a Principal.
type Validator interface {
	Validate(ctx context.Context, token string) (potatosync.Principal, error)
}

// Config selects and configures exactly one strategy.
type Config struct {
	Strategy      Strategy
	HTTPTimeout   time.Duration
	Symmetric     SymmetricConfig
	JWKS          JWKSConfig
	Introspection IntrospectionConfig
	// HTTPClient is used for authority requests. When nil a client with
	// HTTPTimeout is created.
	HTTPClient *http.Client
}

// Authenticator extracts the bearer token of a request and validates it
// with the configured strategy.
type Authenticator struct {
	strategy  Strategy
	validator Validator
}

// New builds the Authenticator for cfg.Strategy.
func New(cfg Config) (*Authenticator, error) {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	var (
		v   Validator
		err error
	)
	switch cfg.Strategy {
	case StrategySymmetric:
		v, err = NewSymmetricValidator(cfg.Symmetric)
	case StrategyJWKS:
		v, err = NewJWKSValidator(cfg.JWKS, client)
	case StrategyIntrospection:
		v, err = NewIntrospectionValidator(cfg.Introspection, client)
	default:
		return nil, fmt.Errorf("new authenticator: unknown strategy %q", cfg.Strategy)
	}
	if err != nil {
		return nil, err
	}

	return &Authenticator{strategy: cfg.Strategy, validator: v}, nil
}

// NewAuthenticator wraps an existing validator.
func NewAuthenticator(strategy Strategy, v Validator) *Authenticator {
	return &Authenticator{strategy: strategy, validator: v}
}

func (a *Authenticator) Strategy() Strategy { return a.strategy }

// Authenticate implements potatosync.Authenticator.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) (potatosync.Principal, error) {
	token, err := ExtractBearer(h)
	if err != nil {
		return potatosync.Principal{}, err
	}

	p, err := a.validator.Validate(ctx, token)
	if err != nil {
		kind, _ := KindOf(err)
		if kind.Transient() {
			slog.Warn("authentication dependency unavailable", "strategy", a.strategy, "reason", kind, "error", err)
		} else {
			slog.Debug("token rejected", "strategy", a.strategy, "reason", kind, "error", err)
		}
		return potatosync.Principal{}, err
	}

	return p, nil
}
