package domain

const (
	// DefaultConnectionName is the logical name used when none is given.
	DefaultConnectionName = "DefaultConnection"

	// ConnectionStringsSectionName is the configuration section holding flat
	// connection strings, keyed by logical name.
	ConnectionStringsSectionName = "ConnectionStrings"

	// SettingsSectionName is the configuration section holding structured
	// per-database settings, keyed by logical name.
	SettingsSectionName = "KormSettings"

	// DefaultProvider is the provider id used when settings do not name one.
	DefaultProvider = "sqlite"

	// Reserved keys recognized inside a combined connection string.
	ProviderKey    = "KormProvider"
	AutoMigrateKey = "KormAutoMigrate"
)

// ConnectionSettings is the normalized connection configuration for one
// logical database.
type ConnectionSettings struct {
	ConnectionString string
	Provider         string
	AutoMigrate      bool
	ApplicationName  string
}

// ProviderOrDefault returns the configured provider, or DefaultProvider.
func (s ConnectionSettings) ProviderOrDefault() string {
	if s.Provider == "" {
		return DefaultProvider
	}
	return s.Provider
}
