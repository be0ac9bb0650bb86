package extension

// Config holds the plans extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.plans" or "plans" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend when a grove database was supplied
	// via WithGroveDB: "postgres", "sqlite" or "mongo". Ignored when a
	// store was provided directly.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// Supported Driver values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver: DriverPostgres,
	}
}
