package config

import (
	"fmt"
	"os"
	"path"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is the config path used when none is given.
const DefaultConfigFile = "emoji-config.toml"

// Supported provider type tags.
const (
	ProviderSlack   = "slack"
	ProviderDiscord = "discord"
)

// Defaults applied by Load when the file leaves a field unset.
const (
	DefaultCacheDir       = ".emoji_cache"
	DefaultTTLHours       = 24
	DefaultMaxSizeKB      = 500
	DefaultTimeoutSeconds = 30
	DefaultPrefixFormat   = "namespace-name"
	DefaultPublishDir     = "overrides/assets/emojis"
	DefaultPublishTarget  = "dir"
)

const maxNamespaceLen = 64

// ConfigError indicates an invalid or unusable configuration.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func errorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Config is the full contents of an emoji-config.toml file.
type Config struct {
	Cache     CacheConfig      `toml:"cache"`
	Emojis    Options          `toml:"emojis"`
	Publish   PublishConfig    `toml:"publish"`
	Providers []ProviderConfig `toml:"providers"`
}

// ProviderConfig configures one emoji source.
type ProviderConfig struct {
	Type      string  `toml:"type"`
	Namespace string  `toml:"namespace"`
	TokenEnv  string  `toml:"token_env"`
	TenantEnv string  `toml:"tenant_id"`
	Enabled   *bool   `toml:"enabled"`
	Filters   Filters `toml:"filters"`
}

// IsEnabled reports whether the provider takes part in syncs.
// Providers are enabled unless the config says otherwise.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Filters holds include/exclude glob patterns applied to emoji names.
type Filters struct {
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

// CacheConfig configures the on-disk emoji cache.
type CacheConfig struct {
	Directory    string `toml:"directory"`
	TTLHours     int    `toml:"ttl_hours"`
	CleanOnBuild bool   `toml:"clean_on_build"`
}

// TTL returns the cache freshness window as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Options holds global emoji behavior settings.
type Options struct {
	PrefixFormat    string `toml:"prefix_format"`
	RequirePrefix   bool   `toml:"namespace_prefix_required"`
	MaxSizeKB       int    `toml:"max_size_kb"`
	DownloadTimeout int    `toml:"download_timeout"`
}

// Timeout returns the per-request download timeout as a duration.
func (o Options) Timeout() time.Duration {
	return time.Duration(o.DownloadTimeout) * time.Second
}

// PublishConfig says where synced emojis are published for the renderer.
type PublishConfig struct {
	Dir    string   `toml:"dir"`
	Target string   `toml:"target"`
	S3     S3Config `toml:"s3"`
}

// S3Config configures an S3-compatible publish target.
type S3Config struct {
	Endpoint     string `toml:"endpoint"`
	Bucket       string `toml:"bucket"`
	Prefix       string `toml:"prefix"`
	AccessKeyEnv string `toml:"access_key_env"`
	SecretKeyEnv string `toml:"secret_key_env"`
	Secure       *bool  `toml:"secure"`
}

// UseTLS reports whether the S3 client should connect over HTTPS.
// HTTPS is the default.
func (s S3Config) UseTLS() bool {
	return s.Secure == nil || *s.Secure
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errorf("configuration file not found: %s", path)
		}
		return nil, &ConfigError{Msg: fmt.Sprintf("failed to read %s", path), Err: err}
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid TOML syntax in %s", path), Err: err}
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Directory == "" {
		c.Cache.Directory = DefaultCacheDir
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = DefaultTTLHours
	}
	if c.Emojis.PrefixFormat == "" {
		c.Emojis.PrefixFormat = DefaultPrefixFormat
	}
	if c.Emojis.MaxSizeKB == 0 {
		c.Emojis.MaxSizeKB = DefaultMaxSizeKB
	}
	if c.Emojis.DownloadTimeout == 0 {
		c.Emojis.DownloadTimeout = DefaultTimeoutSeconds
	}
	if c.Publish.Dir == "" {
		c.Publish.Dir = DefaultPublishDir
	}
	if c.Publish.Target == "" {
		c.Publish.Target = DefaultPublishTarget
	}
}

func (c *Config) validate() error {
	if len(c.Providers) == 0 {
		return errorf("at least one provider must be configured")
	}

	for _, p := range c.Providers {
		if err := validateProvider(p); err != nil {
			return err
		}
	}

	switch c.Publish.Target {
	case "dir":
	case "s3":
		s3 := c.Publish.S3
		if s3.Endpoint == "" || s3.Bucket == "" {
			return errorf("publish target s3 requires endpoint and bucket")
		}
		if s3.AccessKeyEnv == "" || s3.SecretKeyEnv == "" {
			return errorf("publish target s3 requires access_key_env and secret_key_env")
		}
	default:
		return errorf("unsupported publish target %q (must be dir or s3)", c.Publish.Target)
	}

	return nil
}

func validateProvider(p ProviderConfig) error {
	if p.Namespace == "" {
		return errorf("namespace cannot be empty")
	}
	if len(p.Namespace) > maxNamespaceLen {
		return errorf("namespace %q is too long (max %d characters)", p.Namespace, maxNamespaceLen)
	}
	for _, r := range p.Namespace {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return errorf("invalid namespace %q: only letters, digits, dashes, and underscores are allowed", p.Namespace)
		}
	}

	switch p.Type {
	case ProviderSlack:
	case ProviderDiscord:
		if p.TenantEnv == "" {
			return errorf("provider %q (discord) requires tenant_id", p.Namespace)
		}
	default:
		return errorf("unsupported provider type %q for %q", p.Type, p.Namespace)
	}

	if p.TokenEnv == "" {
		return errorf("provider %q missing token_env", p.Namespace)
	}

	patterns := append(append([]string{}, p.Filters.IncludePatterns...), p.Filters.ExcludePatterns...)
	for _, pat := range patterns {
		if _, err := path.Match(pat, "x"); err != nil {
			return errorf("invalid filter pattern %q for %q", pat, p.Namespace)
		}
	}

	return nil
}

// EnabledProviders returns the providers that take part in syncs,
// in config file order.
func (c *Config) EnabledProviders() []ProviderConfig {
	var enabled []ProviderConfig
	for _, p := range c.Providers {
		if p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// ProviderByNamespace returns the provider with the given namespace, or nil.
func (c *Config) ProviderByNamespace(namespace string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Namespace == namespace {
			return &c.Providers[i]
		}
	}
	return nil
}

// MissingEnv returns the names of environment variables the enabled
// providers (and the publish target) require but which are unset.
func MissingEnv(cfg *Config) []string {
	var missing []string
	seen := make(map[string]bool)

	record := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}

	for _, p := range cfg.EnabledProviders() {
		record(p.TokenEnv)
		if p.Type == ProviderDiscord {
			record(p.TenantEnv)
		}
	}

	if cfg.Publish.Target == "s3" {
		record(cfg.Publish.S3.AccessKeyEnv)
		record(cfg.Publish.S3.SecretKeyEnv)
	}

	return missing
}

// FormatName renders an emoji shortcode according to the configured
// prefix format. Unknown formats fall back to "namespace-name".
func FormatName(prefixFormat, namespace, name string) string {
	switch prefixFormat {
	case "namespace_name":
		return fmt.Sprintf("%s_%s", namespace, name)
	case "name-only":
		return name
	default:
		return fmt.Sprintf("%s-%s", namespace, name)
	}
}
