package database

const (
	// DriverPostgres stores orders in PostgreSQL through lib/pq.
	DriverPostgres = "postgres"
	// DriverSQLite stores orders in a local SQLite file through modernc.org/sqlite.
	DriverSQLite = "sqlite"
	// DriverJSONFile keeps orders in a JSON array file; no SQL connection is opened.
	DriverJSONFile = "jsonfile"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Driver string `yaml:"driver" envconfig:"DB_DRIVER"`
	// Path is the SQLite database file or the JSON orders file, depending on Driver.
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// UsesSQL reports whether the configured driver needs a SQL connection.
func (c Config) UsesSQL() bool {
	return c.Driver == DriverPostgres || c.Driver == DriverSQLite
}

// PostgresDSN renders the lib/pq keyword DSN.
func (c Config) PostgresDSN() string {
	return "user=" + c.User + " password=" + c.Password + " host=" + c.Host +
		" port=" + c.Port + " dbname=" + c.Name + " sslmode=" + c.SSLMode
}
