package clientcli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the default server endpoint URL.
const DefaultEndpoint = "http://localhost:5708"

// Environment variables read by the client.
const (
	EnvEndpoint  = "POTATOSYNC_ENDPOINT"
	EnvToken     = "POTATOSYNC_TOKEN"
	EnvTokenFile = "POTATOSYNC_TOKEN_FILE"
	EnvProfile   = "POTATOSYNC_PROFILE"
	EnvConfig    = "POTATOSYNC_CONFIG"
)

// Profile is one server the client can talk to.
//
// Access tokens issued by the auth service are short lived, so a profile
// may point at a file the token is refreshed into instead of embedding it.
// Token wins when both are set.
type Profile struct {
	Name      string `yaml:"name"`
	Endpoint  string `yaml:"endpoint"`
	Token     string `yaml:"token,omitempty"`
	TokenFile string `yaml:"token_file,omitempty"`
	Default   bool   `yaml:"default,omitempty"`
}

// ConfigFile is the on-disk list of profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

func (c *ConfigFile) index(name string) int {
	return slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
}

// GetProfile returns the profile by name, or the default profile when name
// is empty.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	if name == "" {
		return c.GetDefaultProfile()
	}

	i := c.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return &c.Profiles[i], nil
}

// GetDefaultProfile returns the profile marked default, or the first one.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	if i := slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Default }); i >= 0 {
		return &c.Profiles[i], nil
	}
	return &c.Profiles[0], nil
}

// AddProfile appends p. Use UpdateProfile to replace an existing profile.
func (c *ConfigFile) AddProfile(p Profile) error {
	if c.index(p.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile replaces the profile with p's name.
func (c *ConfigFile) UpdateProfile(p Profile) error {
	i := c.index(p.Name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, p.Name)
	}
	c.Profiles[i] = p
	return nil
}

// RemoveProfile removes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	i := c.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.Profiles = slices.Delete(c.Profiles, i, i+1)
	return nil
}

// SetDefault marks name as the only default profile.
func (c *ConfigFile) SetDefault(name string) error {
	if c.index(name) < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
	}
	return nil
}

// ProfileNames returns the profile names in file order.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// Validate reports profiles without a name, duplicate names and more than
// one default.
func (c *ConfigFile) Validate() error {
	seen := make(map[string]bool, len(c.Profiles))
	defaults := 0
	for i, p := range c.Profiles {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: profile %d has no name", ErrInvalidConfigFile, i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate profile %s", ErrInvalidConfigFile, p.Name)
		}
		seen[p.Name] = true
		if p.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: %d profiles are marked default", ErrInvalidConfigFile, defaults)
	}
	return nil
}

// Save writes the config to path, creating the parent directory. The file
// holds tokens and is written with mode 0600 through a rename so a reader
// never sees a truncated file.
func (c *ConfigFile) Save(path string) error {
	cleanPath := filepath.Clean(path)
	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), cleanPath); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// LoadConfigFile reads and validates the config file at path.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultConfigPath returns ~/.potatosync/config.yaml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".potatosync", "config.yaml")
}

// Config is the resolved endpoint and token the Client uses.
type Config struct {
	Endpoint string
	Token    string
}

// WithDefaults returns a copy with Endpoint defaulted to DefaultEndpoint.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &cfg
}

// ValidateWithAuth checks that a bearer token is set.
func (c *Config) ValidateWithAuth() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrTokenRequired
	}
	return nil
}

// readTokenFile returns the trimmed content of a token file.
func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided token file
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("token file %s: %w", path, ErrTokenRequired)
	}
	return tok, nil
}

// ConfigFromProfile resolves a Profile, reading its token file when no
// token is embedded. A nil profile yields an empty Config.
func ConfigFromProfile(p *Profile) (*Config, error) {
	if p == nil {
		return &Config{}, nil
	}

	cfg := &Config{Endpoint: p.Endpoint, Token: p.Token}
	if cfg.Token == "" && p.TokenFile != "" {
		tok, err := readTokenFile(p.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		cfg.Token = tok
	}
	return cfg, nil
}

// ConfigFromEnv loads config from POTATOSYNC_ENDPOINT and
// POTATOSYNC_TOKEN, falling back to the file named by
// POTATOSYNC_TOKEN_FILE for the token.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Endpoint: os.Getenv(EnvEndpoint),
		Token:    os.Getenv(EnvToken),
	}
	if path := os.Getenv(EnvTokenFile); cfg.Token == "" && path != "" {
		tok, err := readTokenFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTokenFile, err)
		}
		cfg.Token = tok
	}
	return cfg, nil
}

// ProfileFromEnv returns the profile name from POTATOSYNC_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv(EnvProfile)
}

// ConfigPathFromEnv returns the config file path from POTATOSYNC_CONFIG.
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}

// MergeConfig merges configs left to right. Empty fields never override.
func MergeConfig(configs ...*Config) *Config {
	result := &Config{}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if cfg.Endpoint != "" {
			result.Endpoint = cfg.Endpoint
		}
		if cfg.Token != "" {
			result.Token = cfg.Token
		}
	}
	return result
}

// IsConfigMissing reports whether err means the config file does not exist.
func IsConfigMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
