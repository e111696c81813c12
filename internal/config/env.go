package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/msomdec/kormkit/internal/domain"
)

// envSeparator separates hierarchy levels in environment variable names,
// e.g. KormSettings__Reporting__KormProvider.
const envSeparator = "__"

// ApplyEnv overlays environment variables on top of c. environ has the
// form returned by os.Environ. Recognized variables:
//
//	ConnectionStrings__<name>=<connection string>
//	KormSettings__<name>__<field>=<value>
//
// Prefixes and field names are case-insensitive.
func (c *Config) ApplyEnv(environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		parts := strings.Split(key, envSeparator)
		switch {
		case len(parts) == 2 && strings.EqualFold(parts[0], domain.ConnectionStringsSectionName) && parts[1] != "":
			if c.ConnectionStrings == nil {
				c.ConnectionStrings = make(map[string]string)
			}
			c.ConnectionStrings[parts[1]] = value
		case len(parts) == 3 && strings.EqualFold(parts[0], domain.SettingsSectionName) && parts[1] != "":
			if err := c.setField(parts[1], parts[2], value); err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
		}
	}
	return nil
}

func (c *Config) setField(name, field, value string) error {
	if c.KormSettings == nil {
		c.KormSettings = make(map[string]Section)
	}
	s := c.KormSettings[name]
	switch strings.ToLower(field) {
	case "connectionstring":
		s.ConnectionString = value
	case "kormprovider":
		s.KormProvider = value
	case "automigrate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse AutoMigrate: %w", err)
		}
		s.AutoMigrate = b
	case "applicationname":
		s.ApplicationName = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	c.KormSettings[name] = s
	return nil
}
