// Package confstore holds METplus configuration as sectioned key/value pairs.
package confstore

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/metplus/internal/contract"
)

// maxInterpolationDepth bounds recursive {KEY} expansion.
const maxInterpolationDepth = 10

var (
	keyRefRegex = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	envRefRegex = regexp.MustCompile(`\{ENV\[([A-Za-z_][A-Za-z0-9_]*)\]\}`)
)

// Store is an in-memory METplus configuration. It satisfies contract.ConfigStore.
// A Store is safe for concurrent reads once loading is finished.
type Store struct {
	sections map[string]map[string]string
	order    []string
	files    []string
}

var _ contract.ConfigStore = (*Store)(nil)

// New builds a Store from a literal section map. Section names are lowered
// and keys are upper-cased.
func New(values map[string]map[string]string) *Store {
	s := &Store{sections: make(map[string]map[string]string)}
	for _, section := range slices.Sorted(maps.Keys(values)) {
		for key, value := range values[section] {
			s.Set(section, key, value)
		}
	}
	return s
}

// NewConfig builds a Store with only the config section set.
func NewConfig(values map[string]string) *Store {
	return New(map[string]map[string]string{contract.ConfigSection: values})
}

// Set assigns a value, creating the section if needed.
func (s *Store) Set(section, key, value string) {
	section = normalizeSection(section)
	sec, ok := s.sections[section]
	if !ok {
		sec = make(map[string]string)
		s.sections[section] = sec
		s.order = append(s.order, section)
	}
	sec[normalizeKey(key)] = value
}

// Delete removes a key if present.
func (s *Store) Delete(section, key string) {
	if sec, ok := s.sections[normalizeSection(section)]; ok {
		delete(sec, normalizeKey(key))
	}
}

// Merge copies every value of other into s. Values in other win.
func (s *Store) Merge(other *Store) {
	for _, section := range other.order {
		for key, value := range other.sections[section] {
			s.Set(section, key, value)
		}
	}
	s.files = append(s.files, other.files...)
}

// Files returns the paths that were loaded into the store, in load order.
func (s *Store) Files() []string {
	return slices.Clone(s.files)
}

// ApplyOverrides applies "section.KEY=value" or "KEY=value" assignments.
// A missing section means the config section.
func (s *Store) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		lhs, value, ok := strings.Cut(override, "=")
		if !ok {
			return fmt.Errorf("invalid override %q: expected [section.]KEY=value", override)
		}
		section, key, found := strings.Cut(strings.TrimSpace(lhs), ".")
		if !found {
			section, key = contract.ConfigSection, section
		}
		if key == "" {
			return fmt.Errorf("invalid override %q: empty key", override)
		}
		s.Set(section, key, strings.TrimSpace(value))
	}
	return nil
}

// SetDefaultClock records t as CLOCK_TIME unless one is configured.
func (s *Store) SetDefaultClock(t time.Time) {
	if !s.HasOption(contract.ConfigSection, "CLOCK_TIME") {
		s.Set(contract.ConfigSection, "CLOCK_TIME", contract.FormatTime(contract.ClockTimeFormat, t))
	}
}

// GetRaw returns the value of key with {OTHER_KEY} and {ENV[NAME]} references
// expanded. Unknown references such as {init?fmt=%Y} are left untouched.
func (s *Store) GetRaw(section, key string) (string, bool) {
	value, ok := s.lookup(section, key)
	if !ok {
		return "", false
	}
	return s.interpolate(value, 0), true
}

// GetString returns the expanded value of key or fallback when it is unset.
func (s *Store) GetString(section, key, fallback string) string {
	if value, ok := s.GetRaw(section, key); ok {
		return value
	}
	return fallback
}

// HasOption reports whether key is set in section.
func (s *Store) HasOption(section, key string) bool {
	_, ok := s.lookup(section, key)
	return ok
}

// Keys returns the keys of section in sorted order.
func (s *Store) Keys(section string) []string {
	sec, ok := s.sections[normalizeSection(section)]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(sec))
}

// Sections returns the section names in the order they were first seen.
func (s *Store) Sections() []string {
	return slices.Clone(s.order)
}

// Snapshot returns a copy of every value, unexpanded.
func (s *Store) Snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string, len(s.sections))
	for name, sec := range s.sections {
		out[name] = maps.Clone(sec)
	}
	return out
}

func (s *Store) lookup(section, key string) (string, bool) {
	sec, ok := s.sections[normalizeSection(section)]
	if !ok {
		return "", false
	}
	value, ok := sec[normalizeKey(key)]
	return value, ok
}

// interpolate expands references. Lookup order for {KEY} is config, dir, then
// any other section.
func (s *Store) interpolate(value string, depth int) string {
	if depth >= maxInterpolationDepth || !strings.Contains(value, "{") {
		return value
	}
	value = envRefRegex.ReplaceAllStringFunc(value, func(ref string) string {
		name := envRefRegex.FindStringSubmatch(ref)[1]
		if env, ok := os.LookupEnv(name); ok {
			return env
		}
		return ref
	})
	return keyRefRegex.ReplaceAllStringFunc(value, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if name != strings.ToUpper(name) {
			return ref
		}
		if found, ok := s.findAnywhere(name); ok {
			return s.interpolate(found, depth+1)
		}
		return ref
	})
}

func (s *Store) findAnywhere(key string) (string, bool) {
	for _, section := range []string{contract.ConfigSection, contract.DirSection} {
		if value, ok := s.lookup(section, key); ok {
			return value, true
		}
	}
	for _, section := range s.order {
		if value, ok := s.sections[section][key]; ok {
			return value, true
		}
	}
	return "", false
}

func normalizeSection(section string) string {
	section = strings.ToLower(strings.TrimSpace(section))
	if section == "" {
		return contract.ConfigSection
	}
	return section
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// configSource labels a loaded file in log output.
func configSource(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
