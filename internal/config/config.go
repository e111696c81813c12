// Package config resolves named connection settings from layered
// configuration: a YAML or JSON file overlaid by environment variables.
//
// The document has two sections keyed by logical database name:
//
//	ConnectionStrings:
//	  DefaultConnection: "file:app.db"
//	KormSettings:
//	  DefaultConnection:
//	    KormProvider: sqlite
//	    AutoMigrate: true
//
// A flat connection string always wins over the ConnectionString field of
// the structured section.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/msomdec/kormkit/internal/domain"
)

// Config is the configuration document.
type Config struct {
	ConnectionStrings map[string]string  `yaml:"ConnectionStrings" json:"ConnectionStrings,omitempty" jsonschema:"description=Flat connection strings keyed by logical database name"`
	KormSettings      map[string]Section `yaml:"KormSettings" json:"KormSettings,omitempty" jsonschema:"description=Structured settings keyed by logical database name"`
}

// Section holds the structured settings of one logical database.
type Section struct {
	ConnectionString string `yaml:"ConnectionString" json:"ConnectionString,omitempty" jsonschema:"description=Used only when ConnectionStrings has no entry for the same name"`
	KormProvider     string `yaml:"KormProvider" json:"KormProvider,omitempty" jsonschema:"description=Provider id: sqlite or pgx or postgres or mysql"`
	AutoMigrate      bool   `yaml:"AutoMigrate" json:"AutoMigrate,omitempty" jsonschema:"description=Run migrations when the database is registered"`
	ApplicationName  string `yaml:"ApplicationName" json:"ApplicationName,omitempty" jsonschema:"description=Application name reported to the server where supported"`
}

// Load reads a configuration file. Files ending in .json are decoded as
// JSON, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ConnectionSettings returns the merged settings for name. The boolean is
// false when name appears in neither section.
//
// Names are matched exactly first, then case-insensitively. Reserved keys
// are stripped from the flat connection string; when no structured section
// exists their values are used as the settings. A flat connection string
// holding nothing but reserved keys is an error wrapping
// domain.ErrReservedKeysOnly.
func (c *Config) ConnectionSettings(name string) (domain.ConnectionSettings, bool, error) {
	flat, hasFlat := lookup(c.ConnectionStrings, name)
	section, hasSection := lookup(c.KormSettings, name)
	if !hasFlat && !hasSection {
		return domain.ConnectionSettings{}, false, nil
	}

	var parsed domain.ConnectionSettings
	if hasFlat {
		var err error
		parsed, err = ParseConnectionString(flat)
		if errors.Is(err, domain.ErrReservedKeysOnly) {
			return domain.ConnectionSettings{}, true, fmt.Errorf("database %q: %w", name, err)
		}
	}
	if !hasSection {
		return parsed, true, nil
	}

	settings := domain.ConnectionSettings{
		ConnectionString: section.ConnectionString,
		Provider:         section.KormProvider,
		AutoMigrate:      section.AutoMigrate,
		ApplicationName:  section.ApplicationName,
	}
	if hasFlat {
		settings.ConnectionString = parsed.ConnectionString
	}
	if strings.TrimSpace(settings.Provider) == "" {
		settings.Provider = domain.DefaultProvider
	}
	return settings, true, nil
}

// Names returns every logical name defined in either section, sorted.
func (c *Config) Names() []string {
	var names []string
	for name := range c.ConnectionStrings {
		names = append(names, name)
	}
	for name := range c.KormSettings {
		if _, ok := c.ConnectionStrings[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func lookup[V any](m map[string]V, name string) (V, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	var zero V
	return zero, false
}
