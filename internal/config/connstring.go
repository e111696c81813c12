package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/msomdec/kormkit/internal/domain"
)

// ParseConnectionString splits a combined connection string into the real
// connection string and the reserved KormProvider and KormAutoMigrate keys.
// Reserved keys are matched case-insensitively and removed. A blank provider
// falls back to domain.DefaultProvider and an unparsable auto-migrate value
// is treated as false.
func ParseConnectionString(raw string) (domain.ConnectionSettings, error) {
	settings := domain.ConnectionSettings{Provider: domain.DefaultProvider}
	var kept []string
	reserved := false

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if ok {
			switch key = strings.TrimSpace(key); {
			case strings.EqualFold(key, domain.ProviderKey):
				reserved = true
				if v := unquote(value); v != "" {
					settings.Provider = v
				}
				continue
			case strings.EqualFold(key, domain.AutoMigrateKey):
				reserved = true
				settings.AutoMigrate, _ = strconv.ParseBool(unquote(value))
				continue
			}
		}
		kept = append(kept, part)
	}

	settings.ConnectionString = strings.Join(kept, ";")
	if settings.ConnectionString == "" {
		if reserved {
			return settings, fmt.Errorf("%w: %q", domain.ErrReservedKeysOnly, raw)
		}
		return settings, domain.ErrEmptyConnection
	}
	return settings, nil
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `'"`)
	return strings.TrimSpace(v)
}
