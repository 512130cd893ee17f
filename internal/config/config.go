package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultAliasPath is the fixed short path inside environments that
	// points at the active checkout.
	DefaultAliasPath = "/home/vscode/work"

	// DefaultFetchIntervalSecs gates how often a mirror is re-fetched.
	DefaultFetchIntervalSecs = 3600

	// DefaultPruneAfterDays is the age at which unused checkouts become
	// candidates for pruning.
	DefaultPruneAfterDays = 30
)

// nameRegex validates owner and repository name segments.
// Segments must start with an alphanumeric character and may contain
// alphanumerics, underscores, hyphens, and dots. Maximum 100 characters.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,99}$`)

// ValidateName checks that an owner or repository name is safe for use
// in directory paths and environment identifiers.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q: must start with an alphanumeric character, contain only alphanumerics, dots, underscores, or hyphens, and be at most 100 characters", name)
	}

	return nil
}

// Config is the root of the TOML configuration file.
type Config struct {
	Worktree WorktreeConfig `toml:"worktree"`
}

// WorktreeConfig configures the worktree orchestration core.
type WorktreeConfig struct {
	Enabled           bool          `toml:"enabled"`
	ReposDir          string        `toml:"repos_dir"`
	MetadataPath      string        `toml:"metadata_path"`
	AutoFetch         bool          `toml:"auto_fetch"`
	FetchIntervalSecs int           `toml:"fetch_interval_secs"`
	AliasPath         string        `toml:"alias_path"`
	FallbackImage     string        `toml:"fallback_image"`
	Cleanup           CleanupConfig `toml:"cleanup"`
}

// CleanupConfig configures stale-checkout pruning.
type CleanupConfig struct {
	AutoPrune      bool `toml:"auto_prune"`
	PruneAfterDays int  `toml:"prune_after_days"`
}

// FetchInterval returns the configured auto-fetch interval.
func (c *WorktreeConfig) FetchInterval() time.Duration {
	return time.Duration(c.FetchIntervalSecs) * time.Second
}

// PruneAfter returns the configured stale-checkout age.
func (c *CleanupConfig) PruneAfter() time.Duration {
	return time.Duration(c.PruneAfterDays) * 24 * time.Hour
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	w := &c.Worktree
	if w.ReposDir == "" {
		return fmt.Errorf("repos_dir is required")
	}
	if !filepath.IsAbs(w.ReposDir) {
		return fmt.Errorf("repos_dir must be an absolute path (got %q)", w.ReposDir)
	}
	if w.MetadataPath == "" {
		return fmt.Errorf("metadata_path is required")
	}
	if w.FetchIntervalSecs < 0 {
		return fmt.Errorf("fetch_interval_secs must not be negative (got %d)", w.FetchIntervalSecs)
	}
	if w.AliasPath != "" && !filepath.IsAbs(w.AliasPath) {
		return fmt.Errorf("alias_path must be an absolute path (got %q)", w.AliasPath)
	}
	if w.Cleanup.PruneAfterDays < 0 {
		return fmt.Errorf("prune_after_days must not be negative (got %d)", w.Cleanup.PruneAfterDays)
	}
	return nil
}

// CacheBase returns the base cache directory, honoring XDG_CACHE_HOME.
func CacheBase() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "arbor")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory; fall back to a shared tmp location.
		return filepath.Join(os.TempDir(), "arbor")
	}
	return filepath.Join(home, ".cache", "arbor")
}

// ConfigPath returns the path to the TOML config file, honoring
// XDG_CONFIG_HOME.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "arbor", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "arbor", "config.toml")
	}
	return filepath.Join(home, ".config", "arbor", "config.toml")
}

// Default returns the built-in configuration.
func Default() *Config {
	cache := CacheBase()
	return &Config{
		Worktree: WorktreeConfig{
			Enabled:           true,
			ReposDir:          filepath.Join(cache, "repos"),
			MetadataPath:      filepath.Join(cache, "metadata.json"),
			AutoFetch:         true,
			FetchIntervalSecs: DefaultFetchIntervalSecs,
			AliasPath:         DefaultAliasPath,
			Cleanup: CleanupConfig{
				AutoPrune:      true,
				PruneAfterDays: DefaultPruneAfterDays,
			},
		},
	}
}

// Load reads the configuration from the default path. A missing file
// yields the built-in defaults; a present but invalid file is an error.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from an explicit path. Fields absent
// from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the given path in TOML form,
// creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Paths holds the resolved filesystem locations the core works with.
type Paths struct {
	ReposDir     string
	MetadataPath string
	LocksDir     string
}

// ResolvePaths derives the runtime paths from the configuration.
func (c *Config) ResolvePaths() *Paths {
	return &Paths{
		ReposDir:     c.Worktree.ReposDir,
		MetadataPath: c.Worktree.MetadataPath,
		LocksDir:     filepath.Join(filepath.Dir(c.Worktree.MetadataPath), "locks"),
	}
}
