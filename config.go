package credstore

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DriverSQLite stores accounts in an embedded sqlite database
	DriverSQLite = "sqlite"
	// DriverPostgres stores accounts in postgres through pgx
	DriverPostgres = "postgres"
)

// DefaultLastLoginTimeout bounds the detached lastlogin write after a login
const DefaultLastLoginTimeout = 5 * time.Second

// Config holds store options
type Config struct {
	Driver           string        `mapstructure:"driver" json:"driver"`
	DSN              string        `mapstructure:"dsn" json:"dsn"`
	Iterations       int           `mapstructure:"iterations" json:"iterations"`
	Migrate          bool          `mapstructure:"migrate" json:"migrate"`
	LastLoginTimeout time.Duration `mapstructure:"lastlogin_timeout" json:"lastlogin_timeout"`
}

// DefaultConfig returns a sqlite backed configuration with migrations enabled
func DefaultConfig() Config {
	return Config{
		Driver:           DriverSQLite,
		DSN:              "file:credstore.sqlite?cache=shared",
		Iterations:       MinIterations,
		Migrate:          true,
		LastLoginTimeout: DefaultLastLoginTimeout,
	}
}

// Validate checks the driver and DSN. Iterations are never rejected, low
// values are raised to MinIterations by the codec.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// EffectiveIterations returns the iteration count the codec will use
func (c Config) EffectiveIterations() int {
	return NewCodec(c.Iterations).Iterations()
}
