package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

const maxIntrospectionSize = 1 << 20

// IntrospectionConfig configures RFC 7662 token introspection.
type IntrospectionConfig struct {
	URL          string
	ClientID     string
	ClientSecret string
}

// IntrospectionResponse is the active-token answer of an introspection
// endpoint. Only Active is meaningful for an inactive token.
type IntrospectionResponse struct {
	Active            bool             `json:"active"`
	Subject           string           `json:"sub"`
	Username          string           `json:"username"`
	PreferredUsername string           `json:"preferred_username"`
	Email             string           `json:"email"`
	ClientID          string           `json:"client_id"`
	Scope             string           `json:"scope"`
	TokenType         string           `json:"token_type"`
	Issuer            string           `json:"iss"`
	Audience          jwt.ClaimStrings `json:"aud"`
	ExpiresAt         int64            `json:"exp"`
	IssuedAt          int64            `json:"iat"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// IntrospectionValidator asks the authority whether a token is active.
type IntrospectionValidator struct {
	cfg    IntrospectionConfig
	client *http.Client
}

func NewIntrospectionValidator(cfg IntrospectionConfig, client *http.Client) (*IntrospectionValidator, error) {
	if cfg.URL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("new introspection validator: url, client id and client secret are required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, errors.New("new introspection validator: invalid url")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &IntrospectionValidator{cfg: cfg, client: client}, nil
}

// Validate posts the token to the introspection endpoint. Transport
// failures and non-200 answers are IntrospectionUnavailable. An inactive
// token, or a body that cannot be decoded, is InvalidToken.
func (v *IntrospectionValidator) Validate(ctx context.Context, token string) (potatosync.Principal, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return potatosync.Principal{}, newError(IntrospectionUnavailable, "build introspection request: %w", err)
	}
	req.SetBasicAuth(v.cfg.ClientID, v.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return potatosync.Principal{}, newError(IntrospectionUnavailable, "introspect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return potatosync.Principal{}, newError(IntrospectionUnavailable, "introspect: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIntrospectionSize))
	if err != nil {
		return potatosync.Principal{}, newError(IntrospectionUnavailable, "read introspection response: %w", err)
	}

	var header struct {
		Active bool `json:"active"`
	}
	if err := json.Unmarshal(body, &header); err != nil {
		return potatosync.Principal{}, newError(InvalidToken, "decode introspection response: %w", err)
	}
	if !header.Active {
		return potatosync.Principal{}, newError(InvalidToken, "token is not active")
	}

	var full IntrospectionResponse
	if err := json.Unmarshal(body, &full); err != nil {
		return potatosync.Principal{}, newError(InvalidToken, "decode introspection response: %w", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		return potatosync.Principal{}, newError(InvalidToken, "decode introspection response: %w", err)
	}

	p, err := potatosync.NewPrincipal(full.Subject, full.RealmAccess.Roles, claims)
	if err != nil {
		return potatosync.Principal{}, &Error{Kind: InvalidToken, Err: err}
	}
	return p, nil
}
