package objectstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults for Config.
const (
	DefaultRegion            = "us-east-1"
	DefaultUploadURLExpiry   = 5000 * time.Second
	DefaultDownloadURLExpiry = 5 * time.Second
)

// Config holds the connection settings for an S3-compatible object store.
type Config struct {
	// Endpoint is host[:port], optionally with an http:// or https://
	// scheme. An https scheme enables TLS.
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	// UseSSL enables TLS when Endpoint has no scheme.
	UseSSL bool

	// PresignUploads lets clients upload straight to the bucket with a
	// presigned PUT URL instead of streaming through the gateway.
	PresignUploads    bool
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration

	// CreateBucket creates a missing bucket at startup instead of failing.
	CreateBucket bool
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("objectstore: endpoint is required")
	}
	if c.Bucket == "" {
		return errors.New("objectstore: bucket is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("objectstore: access key and secret key are required")
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.UploadURLExpiry <= 0 {
		c.UploadURLExpiry = DefaultUploadURLExpiry
	}
	if c.DownloadURLExpiry <= 0 {
		c.DownloadURLExpiry = DefaultDownloadURLExpiry
	}
	// SigV4 presigned URLs are valid for at most seven days.
	const maxExpiry = 7 * 24 * time.Hour
	if c.UploadURLExpiry > maxExpiry || c.DownloadURLExpiry > maxExpiry {
		return fmt.Errorf("objectstore: presigned url expiry cannot exceed %s", maxExpiry)
	}
	return nil
}

// endpoint splits Endpoint into the bare host minio-go expects and whether
// TLS is enabled.
func (c *Config) endpoint() (string, bool, error) {
	if !strings.Contains(c.Endpoint, "://") {
		return strings.TrimRight(c.Endpoint, "/"), c.UseSSL, nil
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", false, fmt.Errorf("objectstore: invalid endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("objectstore: unsupported endpoint scheme %q", u.Scheme)
	}
}
