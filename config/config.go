package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/broodroosterdev/potatosync-files/auth"
	potatohttp "github.com/broodroosterdev/potatosync-files/http"
	"github.com/broodroosterdev/potatosync-files/objectstore"
)

// EnvPrefix prefixes every environment variable derived from a config key.
const EnvPrefix = "POTATOSYNC"

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for potatosync-files.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
	Env     string        `mapstructure:"env"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=0"`
}

// QuotaConfig holds the per-user object limit. FileLimit has no default.
type QuotaConfig struct {
	FileLimit *int `mapstructure:"file_limit" validate:"required,min=0"`
}

// AuthConfig holds bearer token validation settings. Strategy may be left
// empty and is then inferred from the settings present.
type AuthConfig struct {
	Strategy      string              `mapstructure:"strategy" validate:"omitempty,oneof=symmetric jwks introspection"`
	HTTPTimeout   time.Duration       `mapstructure:"http_timeout" validate:"min=0"`
	Symmetric     SymmetricConfig     `mapstructure:"symmetric"`
	JWKS          JWKSConfig          `mapstructure:"jwks"`
	Introspection IntrospectionConfig `mapstructure:"introspection"`
}

type SymmetricConfig struct {
	Secret    string `mapstructure:"secret"`
	TokenType string `mapstructure:"token_type"`
}

type JWKSConfig struct {
	Authority string        `mapstructure:"authority" validate:"omitempty,url"`
	Issuer    string        `mapstructure:"issuer"`
	CertsURL  string        `mapstructure:"certs_url" validate:"omitempty,url"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

type IntrospectionConfig struct {
	URL          string `mapstructure:"url" validate:"omitempty,url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// StorageConfig selects and configures the storage backend. Backend may be
// left empty and is then inferred from the S3 host.
type StorageConfig struct {
	Backend string             `mapstructure:"backend" validate:"omitempty,oneof=local s3"`
	Local   LocalStorageConfig `mapstructure:"local"`
	S3      S3StorageConfig    `mapstructure:"s3"`
}

type LocalStorageConfig struct {
	Path           string `mapstructure:"path"`
	MaxConcurrency int    `mapstructure:"max_concurrency" validate:"min=0"`
}

type S3StorageConfig struct {
	Host              string        `mapstructure:"host"`
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	Bucket            string        `mapstructure:"bucket"`
	Region            string        `mapstructure:"region"`
	UseSSL            bool          `mapstructure:"use_ssl"`
	PresignUploads    bool          `mapstructure:"presign_uploads"`
	UploadURLExpiry   time.Duration `mapstructure:"upload_url_expiry" validate:"min=0"`
	DownloadURLExpiry time.Duration `mapstructure:"download_url_expiry" validate:"min=0"`
	CreateBucket      bool          `mapstructure:"create_bucket"`
}

// CORSConfig holds cross-origin settings for the HTTP API.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

// LogConfig holds logging configuration. Level and Format default per
// environment: info and json in production, debug and text elsewhere.
type LogConfig struct {
	Level   string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	TimeKey string `mapstructure:"time_key" validate:"required"`
}

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// FileLimit returns the configured quota. Load guarantees it is set.
func (c *Config) FileLimit() int {
	if c.Quota.FileLimit == nil {
		return 0
	}
	return *c.Quota.FileLimit
}

// AuthenticatorConfig converts the auth settings for auth.New.
func (c *Config) AuthenticatorConfig() auth.Config {
	return auth.Config{
		Strategy:    auth.Strategy(c.Auth.Strategy),
		HTTPTimeout: c.Auth.HTTPTimeout,
		Symmetric: auth.SymmetricConfig{
			Secret:    c.Auth.Symmetric.Secret,
			TokenType: c.Auth.Symmetric.TokenType,
		},
		JWKS: auth.JWKSConfig{
			Authority: c.Auth.JWKS.Authority,
			Issuer:    c.Auth.JWKS.Issuer,
			CertsURL:  c.Auth.JWKS.CertsURL,
			TTL:       c.Auth.JWKS.CacheTTL,
		},
		Introspection: auth.IntrospectionConfig{
			URL:          c.Auth.Introspection.URL,
			ClientID:     c.Auth.Introspection.ClientID,
			ClientSecret: c.Auth.Introspection.ClientSecret,
		},
	}
}

// ObjectStoreConfig converts the S3 settings for objectstore.New.
func (c *Config) ObjectStoreConfig() objectstore.Config {
	s3 := c.Storage.S3
	return objectstore.Config{
		Endpoint:          s3.Host,
		AccessKey:         s3.AccessKey,
		SecretKey:         s3.SecretKey,
		Bucket:            s3.Bucket,
		Region:            s3.Region,
		UseSSL:            s3.UseSSL,
		PresignUploads:    s3.PresignUploads,
		UploadURLExpiry:   s3.UploadURLExpiry,
		DownloadURLExpiry: s3.DownloadURLExpiry,
		CreateBucket:      s3.CreateBucket,
	}
}

// HandlerConfig converts the server and CORS settings for the HTTP handler.
func (c *Config) HandlerConfig() potatohttp.HandlerConfig {
	return potatohttp.HandlerConfig{
		MaxUploadSize: c.Server.MaxUploadSize,
		CORS: potatohttp.CORSConfig{
			Enabled:          c.CORS.Enabled,
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			AllowCredentials: c.CORS.AllowCredentials,
			MaxAge:           c.CORS.MaxAge,
		},
	}
}

// Option adjusts what Load requires.
type Option func(*loadOptions)

type loadOptions struct {
	skipAuth bool
}

// WithoutAuth skips auth strategy inference and checks, for commands that
// read storage directly and never validate a token.
func WithoutAuth() Option {
	return func(o *loadOptions) { o.skipAuth = true }
}

// resolve fills the environment dependent defaults, infers the auth
// strategy and storage backend when they are not set explicitly and checks
// that the selected ones are fully configured.
func (c *Config) resolve(o loadOptions) error {
	c.resolveLog()

	if !o.skipAuth {
		if err := c.resolveAuth(); err != nil {
			return err
		}
	}

	return c.resolveStorage()
}

func (c *Config) resolveLog() {
	if c.Log.Level == "" {
		c.Log.Level = "debug"
		if c.IsProduction() {
			c.Log.Level = "info"
		}
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatText
		if c.IsProduction() {
			c.Log.Format = LogFormatJSON
		}
	}
}

func (c *Config) resolveAuth() error {
	if c.Auth.Strategy == "" {
		switch {
		case c.Auth.Introspection.URL != "":
			c.Auth.Strategy = auth.StrategyIntrospection.String()
		case c.Auth.JWKS.Authority != "" || c.Auth.JWKS.CertsURL != "":
			c.Auth.Strategy = auth.StrategyJWKS.String()
		case c.Auth.Symmetric.Secret != "":
			c.Auth.Strategy = auth.StrategySymmetric.String()
		default:
			return errors.New("no auth strategy configured: set auth.symmetric.secret, auth.jwks.authority or auth.introspection.url")
		}
	}

	switch auth.Strategy(c.Auth.Strategy) {
	case auth.StrategySymmetric:
		if c.Auth.Symmetric.Secret == "" {
			return errors.New("auth.symmetric.secret is required for the symmetric strategy")
		}
	case auth.StrategyJWKS:
		if c.Auth.JWKS.Authority == "" && c.Auth.JWKS.CertsURL == "" {
			return errors.New("auth.jwks.authority is required for the jwks strategy")
		}
	case auth.StrategyIntrospection:
		i := c.Auth.Introspection
		if i.URL == "" || i.ClientID == "" || i.ClientSecret == "" {
			return errors.New("auth.introspection.url, client_id and client_secret are required for the introspection strategy")
		}
	}

	return nil
}

func (c *Config) resolveStorage() error {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendLocal
		if c.Storage.S3.Host != "" {
			c.Storage.Backend = BackendS3
		}
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Local.Path == "" {
			return errors.New("storage.local.path is required for the local backend")
		}
	case BackendS3:
		s3 := c.Storage.S3
		if s3.Host == "" || s3.Bucket == "" || s3.AccessKey == "" || s3.SecretKey == "" {
			return errors.New("storage.s3.host, bucket, access_key and secret_key are required for the s3 backend")
		}
	}

	return nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":            "server.port",
	"max-upload-size": "server.max_upload_size",
	"file-limit":      "quota.file_limit",
	"auth-strategy":   "auth.strategy",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.local.path",
	"log-level":       "log.level",
}

// envAliases binds the unprefixed variable names deployments already use.
// The prefixed form always wins.
var envAliases = map[string][]string{
	"auth.symmetric.secret":            {"JWT_SECRET"},
	"auth.jwks.authority":              {"AUTHORITY"},
	"auth.introspection.url":           {"INTROSPECTION_URL"},
	"auth.introspection.client_id":     {"CLIENT_ID"},
	"auth.introspection.client_secret": {"CLIENT_SECRET"},
	"quota.file_limit":                 {"FILE_LIMIT", "IMAGE_LIMIT"},
	"storage.s3.host":                  {"S3_HOST"},
	"storage.s3.access_key":            {"S3_ACCESS_KEY"},
	"storage.s3.secret_key":            {"S3_SECRET_KEY"},
	"storage.s3.bucket":                {"BUCKET_NAME"},
	"storage.local.path":               {"STORAGE_PATH"},
}

// bindEnv binds the prefixed variable and its aliases for every key in
// envAliases. Keys without a default are unknown to AutomaticEnv until
// bound here.
func bindEnv(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit

	v.SetDefault("auth.strategy", "")
	v.SetDefault("auth.http_timeout", auth.DefaultHTTPTimeout)
	v.SetDefault("auth.symmetric.token_type", auth.DefaultTokenType)
	v.SetDefault("auth.jwks.issuer", "")
	v.SetDefault("auth.jwks.certs_url", "")
	v.SetDefault("auth.jwks.cache_ttl", auth.DefaultKeySetTTL)

	v.SetDefault("storage.backend", "")
	v.SetDefault("storage.local.path", "./data")
	v.SetDefault("storage.local.max_concurrency", 64)
	v.SetDefault("storage.s3.region", objectstore.DefaultRegion)
	v.SetDefault("storage.s3.use_ssl", false)
	v.SetDefault("storage.s3.presign_uploads", true)
	v.SetDefault("storage.s3.upload_url_expiry", objectstore.DefaultUploadURLExpiry)
	v.SetDefault("storage.s3.download_url_expiry", objectstore.DefaultDownloadURLExpiry)
	v.SetDefault("storage.s3.create_bucket", false)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.exposed_headers", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")
	v.SetDefault("log.time_key", "ts")
	v.SetDefault("env", "")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
//   - opts: relax what must be configured, see WithoutAuth
func Load(configFiles []string, flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.resolve(o); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
