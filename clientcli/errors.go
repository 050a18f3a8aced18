package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")

	ErrInvalidConfigFile = errors.New("invalid config file")
)

// Errors for configuration validation.
var (
	ErrTokenRequired  = errors.New("token is required")
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoNames     = errors.New("no file names provided")
	ErrEmptyPath   = errors.New("path is required")
	ErrInvalidName = errors.New("invalid file name")
)
