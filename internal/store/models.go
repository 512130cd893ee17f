package store

import (
	"fmt"
	"time"
)

// SchemaVersion is written into every metadata file so later
// releases can detect and migrate older layouts.
const SchemaVersion = 1

// MirrorRecord tracks one bare-ish clone shared by all of a
// repository's checkouts.
type MirrorRecord struct {
	Owner       string    `json:"owner"`
	Repo        string    `json:"repo"`
	Remote      string    `json:"remote"`
	Path        string    `json:"path"`
	LastFetch   time.Time `json:"last_fetch"`
	DefaultName string    `json:"default_branch"`
}

// Key returns the map key for this mirror, "owner/repo".
func (m *MirrorRecord) Key() string {
	return fmt.Sprintf("%s/%s", m.Owner, m.Repo)
}

// CheckoutRecord tracks one worktree carved from a mirror.
type CheckoutRecord struct {
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
	Branch    string    `json:"branch"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`

	// EnvID is the identifier of the environment currently attached
	// to this checkout, empty when none is.
	EnvID string `json:"env_id,omitempty"`

	// NeedsPush marks a branch created locally from the default tip
	// that has never been pushed to the remote.
	NeedsPush bool `json:"needs_push,omitempty"`

	// PathsUnfixed marks a checkout whose gitdir cross-references
	// were not rewritten to relative form. Such a checkout works on
	// the host but breaks inside a container mount.
	PathsUnfixed bool `json:"paths_unfixed,omitempty"`
}

// Key returns the map key for this checkout, "owner/repo/branch".
func (c *CheckoutRecord) Key() string {
	return fmt.Sprintf("%s/%s/%s", c.Owner, c.Repo, c.Branch)
}

// MirrorKey returns the key of the mirror this checkout belongs to.
func (c *CheckoutRecord) MirrorKey() string {
	return fmt.Sprintf("%s/%s", c.Owner, c.Repo)
}

// PersistedState is the full contents of the metadata file.
type PersistedState struct {
	Version   int                        `json:"version"`
	Mirrors   map[string]*MirrorRecord   `json:"mirrors"`
	Checkouts map[string]*CheckoutRecord `json:"checkouts"`
}

// NewState returns an empty state at the current schema version.
func NewState() *PersistedState {
	return &PersistedState{
		Version:   SchemaVersion,
		Mirrors:   make(map[string]*MirrorRecord),
		Checkouts: make(map[string]*CheckoutRecord),
	}
}

// CheckoutsFor returns all checkouts belonging to the given mirror key.
func (s *PersistedState) CheckoutsFor(mirrorKey string) []*CheckoutRecord {
	var out []*CheckoutRecord
	for _, c := range s.Checkouts {
		if c.MirrorKey() == mirrorKey {
			out = append(out, c)
		}
	}
	return out
}
