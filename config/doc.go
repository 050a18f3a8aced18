// Package config provides configuration loading and validation for the
// potatosync-files server.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (POTATOSYNC_ prefix, plus the aliases below)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with POTATOSYNC_ prefix:
//   - server.port → POTATOSYNC_SERVER_PORT
//   - quota.file_limit → POTATOSYNC_QUOTA_FILE_LIMIT
//   - storage.s3.bucket → POTATOSYNC_STORAGE_S3_BUCKET
//
// A few keys also accept unprefixed names:
//
//	JWT_SECRET                    auth.symmetric.secret
//	AUTHORITY                     auth.jwks.authority
//	INTROSPECTION_URL             auth.introspection.url
//	CLIENT_ID, CLIENT_SECRET      auth.introspection.client_id, client_secret
//	FILE_LIMIT, IMAGE_LIMIT       quota.file_limit
//	S3_HOST, BUCKET_NAME          storage.s3.host, storage.s3.bucket
//	S3_ACCESS_KEY, S3_SECRET_KEY  storage.s3.access_key, secret_key
//	STORAGE_PATH                  storage.local.path
//
// # Validation
//
// quota.file_limit has no default and must be a non-negative integer.
// auth.strategy is inferred when empty: introspection if auth.introspection.url
// is set, then jwks if auth.jwks.authority is set, then symmetric.
// Load(files, flags, config.WithoutAuth()) skips the auth checks for
// commands that never see a token.
// storage.backend is s3 when storage.s3.host is set and local otherwise.
// log.level and log.format default to info and json when env is prod or
// production, and to debug and text otherwise.
// Struct tags cover the remaining checks:
//   - Port must be 1-65535
//   - Log level must be debug, info, warn, or error
//   - Durations and sizes must not be negative
package config
