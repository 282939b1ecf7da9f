package threshdb

import (
	"database/sql"
	"fmt"
	"time"

	postgres_migrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/jackc/pgx/v4/stdlib" // Register the pgx driver.
	"github.com/lightninglabs/taproot-threshold/threshdb/sqlc"
)

const (
	// defaultMaxIdleConns is the default size of the idle pool.
	defaultMaxIdleConns = 6

	// defaultConnMaxIdleTime closes connections idle for longer.
	defaultConnMaxIdleTime = 5 * time.Minute
)

var (
	// postgresSchemaReplacements rewrites the sqlite flavored migrations
	// into postgres types.
	postgresSchemaReplacements = map[string]string{
		"BLOB":                "BYTEA",
		"INTEGER PRIMARY KEY": "SERIAL PRIMARY KEY",
		"BIGINT PRIMARY KEY":  "BIGSERIAL PRIMARY KEY",
		"TIMESTAMP":           "TIMESTAMP WITHOUT TIME ZONE",
	}
)

// PostgresConfig holds the postgres database configuration.
//
//nolint:lll
type PostgresConfig struct {
	SkipMigrations     bool          `long:"skipmigrations" description:"Skip applying migrations on startup."`
	Host               string        `long:"host" description:"Database server hostname."`
	Port               int           `long:"port" description:"Database server port."`
	User               string        `long:"user" description:"Database user."`
	Password           string        `long:"password" description:"Database user's password."`
	DBName             string        `long:"dbname" description:"Database name to use."`
	MaxOpenConnections int           `long:"maxconnections" description:"Max open connections to keep alive to the database server."`
	MaxIdleConnections int           `long:"maxidleconnections" description:"Max number of idle connections to keep in the connection pool."`
	ConnMaxLifetime    time.Duration `long:"connmaxlifetime" description:"Max amount of time a connection can be reused for before it is closed."`
	ConnMaxIdleTime    time.Duration `long:"connmaxidletime" description:"Max amount of time a connection can be idle for before it is closed."`
	RequireSSL         bool          `long:"requiressl" description:"Whether to require using SSL (mode: require) when connecting to the server."`
}

// DSN returns the connection string of the database. The password is masked
// when the DSN is meant for the logs.
func (s *PostgresConfig) DSN(hidePassword bool) string {
	sslMode := "disable"
	if s.RequireSSL {
		sslMode = "require"
	}

	password := s.Password
	if hidePassword {
		password = "****"
	}

	return fmt.Sprintf("postgres://%v:%v@%v:%d/%v?sslmode=%v", s.User,
		password, s.Host, s.Port, s.DBName, sslMode)
}

// orDefault returns value if it is set and fallback otherwise.
func orDefault[T int | time.Duration](value, fallback T) T {
	if value > 0 {
		return value
	}

	return fallback
}

// configurePool applies the connection pool limits of the config.
func (s *PostgresConfig) configurePool(db *sql.DB) {
	db.SetMaxOpenConns(orDefault(s.MaxOpenConnections, defaultMaxConns))
	db.SetMaxIdleConns(orDefault(s.MaxIdleConnections, defaultMaxIdleConns))
	db.SetConnMaxLifetime(
		orDefault(s.ConnMaxLifetime, defaultConnMaxLifetime),
	)
	db.SetConnMaxIdleTime(
		orDefault(s.ConnMaxIdleTime, defaultConnMaxIdleTime),
	)
}

// PostgresStore is a threshold database on a postgres server.
type PostgresStore struct {
	cfg *PostgresConfig

	*BaseDB
}

// NewPostgresStore connects to the configured postgres server and brings its
// schema up to date unless migrations are skipped.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	log.Infof("Using SQL database '%s'", cfg.DSN(true))

	db, err := sql.Open("pgx", cfg.DSN(false))
	if err != nil {
		return nil, err
	}
	cfg.configurePool(db)

	if !cfg.SkipMigrations {
		driver, err := postgres_migrate.WithInstance(
			db, &postgres_migrate.Config{},
		)
		if err != nil {
			return nil, fmt.Errorf("unable to create postgres "+
				"migration driver: %w", err)
		}

		// The migrations are written for sqlite, so the column types
		// are rewritten on the fly.
		schemas := newReplacerFS(sqlSchemas, postgresSchemaReplacements)
		err = applyMigrations(
			schemas, driver, migrationsPath, cfg.DBName,
			TargetLatest,
		)
		if err != nil {
			return nil, err
		}
	}

	return &PostgresStore{
		cfg: cfg,
		BaseDB: &BaseDB{
			DB:      db,
			Queries: sqlc.NewPostgres(db),
		},
	}, nil
}
