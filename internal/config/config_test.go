package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateName(t *testing.T) {
	valid := []string{"acme", "acme-corp", "my_repo", "repo.v2", "a", "Repo123"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "-leading", ".hidden", "has space", "owner/repo", "../escape", strings.Repeat("x", 101)}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Worktree.Enabled {
		t.Error("default config should be enabled")
	}
	if cfg.Worktree.AliasPath != DefaultAliasPath {
		t.Errorf("AliasPath = %q, want %q", cfg.Worktree.AliasPath, DefaultAliasPath)
	}
	if got := cfg.Worktree.FetchInterval(); got != time.Hour {
		t.Errorf("FetchInterval() = %v, want 1h", got)
	}
	if got := cfg.Worktree.Cleanup.PruneAfter(); got != 30*24*time.Hour {
		t.Errorf("PruneAfter() = %v, want 720h", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestCacheBase_HonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	if got := CacheBase(); got != "/tmp/xdg-cache/arbor" {
		t.Errorf("CacheBase() = %q, want /tmp/xdg-cache/arbor", got)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Worktree.FetchIntervalSecs != DefaultFetchIntervalSecs {
		t.Errorf("FetchIntervalSecs = %d, want %d", cfg.Worktree.FetchIntervalSecs, DefaultFetchIntervalSecs)
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[worktree]
repos_dir = "/srv/arbor/repos"
fetch_interval_secs = 60
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Worktree.ReposDir != "/srv/arbor/repos" {
		t.Errorf("ReposDir = %q, want /srv/arbor/repos", cfg.Worktree.ReposDir)
	}
	if cfg.Worktree.FetchIntervalSecs != 60 {
		t.Errorf("FetchIntervalSecs = %d, want 60", cfg.Worktree.FetchIntervalSecs)
	}
	// Fields absent from the file keep defaults.
	if cfg.Worktree.AliasPath != DefaultAliasPath {
		t.Errorf("AliasPath = %q, want default %q", cfg.Worktree.AliasPath, DefaultAliasPath)
	}
}

func TestLoadFrom_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[worktree]
repos_dir = "relative/path"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with relative repos_dir should fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Worktree.FallbackImage = "ubuntu:24.04"
	cfg.Worktree.Cleanup.PruneAfterDays = 7

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Worktree.FallbackImage != "ubuntu:24.04" {
		t.Errorf("FallbackImage = %q, want ubuntu:24.04", loaded.Worktree.FallbackImage)
	}
	if loaded.Worktree.Cleanup.PruneAfterDays != 7 {
		t.Errorf("PruneAfterDays = %d, want 7", loaded.Worktree.Cleanup.PruneAfterDays)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	cfg.Worktree.MetadataPath = "/var/lib/arbor/metadata.json"

	paths := cfg.ResolvePaths()
	if paths.MetadataPath != "/var/lib/arbor/metadata.json" {
		t.Errorf("MetadataPath = %q", paths.MetadataPath)
	}
	if paths.LocksDir != "/var/lib/arbor/locks" {
		t.Errorf("LocksDir = %q, want /var/lib/arbor/locks", paths.LocksDir)
	}
}
