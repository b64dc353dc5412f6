package desktop

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bryanchriswhite/hyprdock/internal/logger"
)

// DataDirs returns the applications directories in precedence order:
// $XDG_DATA_HOME first, then each of $XDG_DATA_DIRS.
func DataDirs() []string {
	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(dataDirs, ":") {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}

// CurrentDesktops returns the names listed in $XDG_CURRENT_DESKTOP.
func CurrentDesktops() []string {
	return splitColon(os.Getenv("XDG_CURRENT_DESKTOP"))
}

func splitColon(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ":") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Registry indexes desktop entries by id. The first directory that provides
// an id wins, including entries marked Hidden, which then hide the id.
type Registry struct {
	dirs []string

	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates a registry over dirs. No dirs means DataDirs().
func NewRegistry(dirs ...string) *Registry {
	if len(dirs) == 0 {
		dirs = DataDirs()
	}
	return &Registry{
		dirs:    dirs,
		entries: make(map[string]*Entry),
	}
}

// Dirs returns the scanned directories.
func (r *Registry) Dirs() []string {
	return r.dirs
}

// Load rescans every directory, replacing the index. Unreadable directories
// and malformed files are skipped.
func (r *Registry) Load() {
	log := logger.WithComponent("desktop")
	entries := make(map[string]*Entry)

	for _, dir := range r.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".desktop") {
				return nil
			}

			id := entryID(dir, path)
			if _, seen := entries[id]; seen {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				log.Debug().Err(err).Str("path", path).Msg("Skipping unreadable desktop entry")
				return nil
			}
			e, err := ParseEntry(id, data)
			if err != nil {
				log.Debug().Err(err).Str("path", path).Msg("Skipping malformed desktop entry")
				return nil
			}
			e.Path = path
			entries[id] = e
			return nil
		})
		if err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("Failed to scan applications directory")
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	log.Debug().Int("entries", len(entries)).Int("dirs", len(r.dirs)).Msg("Desktop registry loaded")
}

// entryID turns a path below dir into a desktop id: subdirectory separators
// become dashes.
func entryID(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "-")
}

// Lookup returns the entry for id. Hidden entries are reported as missing.
func (r *Registry) Lookup(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || e.Hidden {
		return nil, false
	}
	return e, true
}

// WMClassHint returns the StartupWMClass declared by id.
func (r *Registry) WMClassHint(id string) (string, bool) {
	e, ok := r.Lookup(id)
	if !ok {
		return "", false
	}
	return e.StartupWMClass, true
}

// Describe returns the display name and icon of id.
func (r *Registry) Describe(id string) (name, icon string, ok bool) {
	e, ok := r.Lookup(id)
	if !ok {
		return "", "", false
	}
	return e.Name, e.Icon, true
}

// Visible returns the entries that should be listed on the given desktops,
// sorted by name.
func (r *Registry) Visible(desktops []string) []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.ShouldShow(desktops) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of indexed entries, hidden ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
