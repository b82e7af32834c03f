// Package authormap loads and resolves the authors map file of spec.md
// §6.4: a JSON object mapping a VSS username to the Name/Email pair used
// for GIT_AUTHOR_*/GIT_COMMITTER_* (internal/gitdriver.Identity).
package authormap

import (
	"encoding/json"
	"os"

	"github.com/vss2git/vss2git/internal/gitdriver"
)

// Entry is one author's resolved identity.
type Entry struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

// Map resolves VSS usernames to git identities, falling back to the raw
// username (with a synthesized email) when no entry exists.
type Map struct {
	entries map[string]Entry
}

// Load reads a JSON object of {"<username>": {"Name":..., "Email":...}}
// from path. A missing file yields an empty Map rather than an error,
// matching the teacher's lenient-default convention for optional sidecar
// config (modules/zeta/config's env-overlay loading).
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Map{entries: map[string]Entry{}}, nil
		}
		return nil, err
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &Map{entries: entries}, nil
}

// Resolve returns the Identity for username, falling back to
// "<username>" / "<username>@localhost" when unmapped.
func (m *Map) Resolve(username string) gitdriver.Identity {
	if e, ok := m.entries[username]; ok {
		return gitdriver.Identity{Name: e.Name, Email: e.Email}
	}
	return gitdriver.Identity{Name: username, Email: username + "@localhost"}
}

// Save writes the map back out in the same JSON shape it was loaded from;
// the CLI calls it at the end of every successful run.
func Save(path string, m *Map) error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Set records or overwrites username's identity.
func (m *Map) Set(username string, e Entry) {
	if m.entries == nil {
		m.entries = map[string]Entry{}
	}
	m.entries[username] = e
}
