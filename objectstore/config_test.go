package objectstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "files",
	}
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, 5000*time.Second, cfg.UploadURLExpiry)
	assert.Equal(t, 5*time.Second, cfg.DownloadURLExpiry)
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no endpoint", mutate: func(c *Config) { c.Endpoint = "" }},
		{name: "no bucket", mutate: func(c *Config) { c.Bucket = "" }},
		{name: "no access key", mutate: func(c *Config) { c.AccessKey = "" }},
		{name: "no secret key", mutate: func(c *Config) { c.SecretKey = "" }},
		{name: "expiry too long", mutate: func(c *Config) { c.UploadURLExpiry = 8 * 24 * time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Endpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
		wantError  bool
	}{
		{endpoint: "localhost:9000", wantHost: "localhost:9000"},
		{endpoint: "s3.example.com", useSSL: true, wantHost: "s3.example.com", wantSecure: true},
		{endpoint: "http://minio:9000", useSSL: true, wantHost: "minio:9000"},
		{endpoint: "https://s3.example.com/", wantHost: "s3.example.com", wantSecure: true},
		{endpoint: "ftp://files.example.com", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := Config{Endpoint: tt.endpoint, UseSSL: tt.useSSL}
			host, secure, err := cfg.endpoint()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}
