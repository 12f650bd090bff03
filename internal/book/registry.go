package book

import (
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Registry provides case-insensitive lookup of book profiles. The profile
// table is an immutable snapshot behind an atomic pointer, so reads during
// a scan never need locking and a hot reload swaps the table in one step.
type Registry struct {
	snapshot atomic.Pointer[map[string]Profile]
	logger   *logrus.Logger
}

// NewRegistry creates a registry seeded with the given profiles
func NewRegistry(profiles []Profile, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	r := &Registry{logger: logger}
	r.Reload(profiles)
	return r
}

// Get returns the profile for a book, falling back to the default profile
// for unknown names
func (r *Registry) Get(name string) Profile {
	table := *r.snapshot.Load()
	if p, ok := table[normalizeName(name)]; ok {
		return p
	}
	r.logger.WithField("book", name).Debug("No profile registered, using default")
	return DefaultProfile(name)
}

// Register inserts or overwrites a single profile in a new snapshot
func (r *Registry) Register(profile Profile) {
	old := *r.snapshot.Load()
	table := make(map[string]Profile, len(old)+1)
	for k, v := range old {
		table[k] = v
	}

	key := normalizeName(profile.Name)
	if _, exists := table[key]; exists {
		r.logger.WithField("book", profile.Name).Warn("Overwriting existing book profile")
	}
	table[key] = profile
	r.snapshot.Store(&table)
}

// Reload atomically replaces the whole profile table. Duplicate names keep
// the last entry and log a warning.
func (r *Registry) Reload(profiles []Profile) {
	table := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		key := normalizeName(p.Name)
		if _, exists := table[key]; exists {
			r.logger.WithField("book", p.Name).Warn("Duplicate book profile, last write wins")
		}
		table[key] = p
	}
	r.snapshot.Store(&table)
}

// Names returns the registered book names
func (r *Registry) Names() []string {
	table := *r.snapshot.Load()
	names := make([]string, 0, len(table))
	for _, p := range table {
		names = append(names, p.Name)
	}
	return names
}

// Len returns the number of registered profiles
func (r *Registry) Len() int {
	return len(*r.snapshot.Load())
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
