package confstore

import (
	"bufio"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/huangsam/metplus/internal/contract"
)

// iniLoadOptions keep METplus values intact: ';' inside OPTIONS is not a
// comment, quotes are stripped later by the list parser, and indented lines
// continue the previous value.
var iniLoadOptions = ini.LoadOptions{
	IgnoreInlineComment:        true,
	PreserveSurroundedQuote:    true,
	AllowPythonMultilineValues: true,
	IgnoreContinuation:         true,
}

// Load reads METplus configuration files left to right; later files win.
// .conf and .ini files are parsed as INI, .yaml, .yml, .toml and .json through
// viper with top-level keys as sections.
func Load(paths ...string) (*Store, error) {
	store := New(nil)
	for _, path := range paths {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		store.Merge(loaded)
	}
	if len(paths) > 0 {
		store.Set(contract.ConfigSection, "METPLUS_CONFIG_FILES", strings.Join(store.files, ","))
	}
	return store, nil
}

func loadFile(path string) (*Store, error) {
	var (
		store *Store
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml", ".json":
		store, err = loadViper(path)
	default:
		store, err = loadINI(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	store.files = []string{configSource(path)}
	return store, nil
}

func loadINI(source any) (*Store, error) {
	file, err := ini.LoadSources(iniLoadOptions, source)
	if err != nil {
		return nil, err
	}
	store := New(nil)
	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			name = contract.ConfigSection
		}
		for _, key := range section.Keys() {
			store.Set(name, key.Name(), strings.TrimSpace(key.Value()))
		}
	}
	return store, nil
}

func loadViper(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	store := New(nil)
	for section, raw := range v.AllSettings() {
		values, ok := raw.(map[string]any)
		if !ok {
			// top-level scalars belong to the config section
			store.Set(contract.ConfigSection, section, stringify(raw))
			continue
		}
		for key, value := range values {
			store.Set(section, key, stringify(value))
		}
	}
	return store, nil
}

// LoadINIString parses INI text held in memory.
func LoadINIString(text string) (*Store, error) {
	return loadINI([]byte(text))
}

// ParseConfigLines builds a config-section store from "KEY=VALUE" lines.
// Blank lines and lines starting with '#' or ';' are ignored. A "[section]"
// header switches the section for the lines that follow.
func ParseConfigLines(text string) (*Store, error) {
	store := New(nil)
	section := contract.ConfigSection
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE, got %q", lineNo, line)
		}
		store.Set(section, key, strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return store, nil
}

// stringify renders a decoded YAML/TOML/JSON value the way it would be
// written in a METplus .conf file.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + stringify(v[k])
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(v)
	}
}
