// Package config loads and validates arbor-ctl configuration.
//
// Configuration lives in a TOML file at $XDG_CONFIG_HOME/arbor/config.toml
// (falling back to ~/.config/arbor/config.toml):
//
//	[worktree]
//	enabled = true
//	repos_dir = "/home/user/.cache/arbor/repos"
//	metadata_path = "/home/user/.cache/arbor/metadata.json"
//	auto_fetch = true
//	fetch_interval_secs = 3600
//	alias_path = "/home/vscode/work"
//	fallback_image = "mcr.microsoft.com/devcontainers/base:ubuntu"
//
//	[worktree.cleanup]
//	auto_prune = true
//	prune_after_days = 30
//
// A missing file yields the built-in defaults; fields absent from the
// file keep their defaults (so older config files keep working as new
// fields are added).
package config
