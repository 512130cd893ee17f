package worktree

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

// git writes both halves of the worktree cross-reference as absolute
// paths. Absolute paths break as soon as the mirror root is mounted
// somewhere else, so both files are rewritten to paths relative to
// their own containing directory immediately after checkout creation.
//
// For a checkout at <mirror>/.worktrees/<seg> the two files are:
//
//	<checkout>/.git                     "gitdir: <abs admin dir>"
//	<mirror>/.git/worktrees/<name>/gitdir   "<abs checkout>/.git"

// relativeGitdir computes the relative form of the checkout's .git
// pointer. The pointer is resolved relative to the checkout directory
// itself, so the result climbs out of the checkout and back down into
// the mirror's admin area.
func relativeGitdir(checkoutDir, adminDir string) (string, error) {
	rel, err := filepath.Rel(checkoutDir, adminDir)
	if err != nil {
		return "", err
	}
	return rel, nil
}

// relativeBackref computes the relative form of the mirror-side
// backref. The backref is resolved relative to the admin directory
// that contains it.
func relativeBackref(adminDir, checkoutDir string) (string, error) {
	rel, err := filepath.Rel(adminDir, filepath.Join(checkoutDir, ".git"))
	if err != nil {
		return "", err
	}
	return rel, nil
}

// parseGitdirPointer extracts the target of a checkout's .git file.
func parseGitdirPointer(data []byte) (string, bool) {
	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(target), true
}

// FixPaths rewrites the cross-reference files of the checkout at
// checkoutDir so both sides use relative paths. It is idempotent:
// pointers that are already relative are left alone. Any failure is
// reported as a paths-unfixed condition so the caller can record the
// checkout as unusable until a retry succeeds.
func FixPaths(fs system.FileSystem, checkoutDir string) error {
	gitFile := filepath.Join(checkoutDir, ".git")
	data, err := fs.ReadFile(gitFile)
	if err != nil {
		return errors.PathsUnfixed(checkoutDir, err)
	}

	target, ok := parseGitdirPointer(data)
	if !ok {
		return errors.PathsUnfixed(checkoutDir, fmt.Errorf("malformed gitdir pointer in %s", gitFile))
	}

	adminDir := target
	if !filepath.IsAbs(adminDir) {
		adminDir = filepath.Join(checkoutDir, adminDir)
	}
	adminDir = filepath.Clean(adminDir)

	if filepath.IsAbs(target) {
		rel, err := relativeGitdir(checkoutDir, adminDir)
		if err != nil {
			return errors.PathsUnfixed(checkoutDir, err)
		}
		if err := fs.WriteFile(gitFile, []byte("gitdir: "+rel+"\n"), 0o644); err != nil {
			return errors.PathsUnfixed(checkoutDir, err)
		}
	}

	backrefFile := filepath.Join(adminDir, "gitdir")
	backData, err := fs.ReadFile(backrefFile)
	if err != nil {
		return errors.PathsUnfixed(checkoutDir, err)
	}
	backref := strings.TrimSpace(string(backData))
	if filepath.IsAbs(backref) {
		rel, err := relativeBackref(adminDir, checkoutDir)
		if err != nil {
			return errors.PathsUnfixed(checkoutDir, err)
		}
		if err := fs.WriteFile(backrefFile, []byte(rel+"\n"), 0o644); err != nil {
			return errors.PathsUnfixed(checkoutDir, err)
		}
	}

	return nil
}

// VerifyPaths reports whether the checkout's cross-reference resolves
// and both halves are relative. A checkout passing this check survives
// having the mirror root mounted at a different absolute location.
func VerifyPaths(fs system.FileSystem, checkoutDir string) error {
	gitFile := filepath.Join(checkoutDir, ".git")
	data, err := fs.ReadFile(gitFile)
	if err != nil {
		return errors.PathsUnfixed(checkoutDir, err)
	}
	target, ok := parseGitdirPointer(data)
	if !ok {
		return errors.PathsUnfixed(checkoutDir, fmt.Errorf("malformed gitdir pointer in %s", gitFile))
	}
	if filepath.IsAbs(target) {
		return errors.PathsUnfixed(checkoutDir, fmt.Errorf("gitdir pointer is absolute: %s", target))
	}

	adminDir := filepath.Clean(filepath.Join(checkoutDir, target))
	if !fs.IsDir(adminDir) {
		return errors.PathsUnfixed(checkoutDir, fmt.Errorf("gitdir pointer does not resolve: %s", adminDir))
	}

	backData, err := fs.ReadFile(filepath.Join(adminDir, "gitdir"))
	if err != nil {
		return errors.PathsUnfixed(checkoutDir, err)
	}
	backref := strings.TrimSpace(string(backData))
	if filepath.IsAbs(backref) {
		return errors.PathsUnfixed(checkoutDir, fmt.Errorf("backref is absolute: %s", backref))
	}
	resolved := filepath.Clean(filepath.Join(adminDir, backref))
	if resolved != filepath.Join(checkoutDir, ".git") {
		return errors.PathsUnfixed(checkoutDir, fmt.Errorf("backref resolves to %s", resolved))
	}
	return nil
}
