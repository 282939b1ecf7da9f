package threshcfg

import (
	"fmt"

	"github.com/lightninglabs/taproot-threshold/scheme"
	"github.com/lightninglabs/taproot-threshold/threshdb"
	"github.com/lightninglabs/taproot-threshold/threshold"
	"github.com/lightningnetwork/lnd/clock"
)

// Store is an opened threshold store together with the database handle that
// must be closed once the store isn't used anymore.
type Store struct {
	*threshdb.ThresholdStore

	closeDB func() error
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.closeDB()
}

// BuildStore opens the database backend selected in the config and wraps it
// into a threshold store.
func BuildStore(cfg *Config) (*Store, error) {
	var (
		baseDB  *threshdb.BaseDB
		closeDB func() error
	)
	switch cfg.DatabaseBackend {
	case DatabaseBackendSqlite:
		log.Infof("Opening sqlite3 database at: %v",
			cfg.Sqlite.DatabaseFileName)

		db, err := threshdb.NewSqliteStore(cfg.Sqlite)
		if err != nil {
			return nil, fmt.Errorf("unable to open database: %w",
				err)
		}
		baseDB, closeDB = db.BaseDB, db.DB.Close

	case DatabaseBackendPostgres:
		log.Infof("Opening postgres database at: %v",
			cfg.Postgres.DSN(true))

		db, err := threshdb.NewPostgresStore(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("unable to open database: %w",
				err)
		}
		baseDB, closeDB = db.BaseDB, db.DB.Close

	default:
		return nil, fmt.Errorf("unknown database backend: %s",
			cfg.DatabaseBackend)
	}

	log.Infof("Threshold store ready on %v backend", baseDB.Backend())

	return &Store{
		ThresholdStore: threshdb.NewThresholdStoreFromDB(
			baseDB, clock.NewDefaultClock(),
		),
		closeDB: closeDB,
	}, nil
}

// BuildEngine creates an engine over the given store with the scheme and
// message policy selected in the config. The host capabilities are supplied
// by the caller.
func BuildEngine(cfg *Config, store threshold.Store, chain threshold.ChainHeight,
	ledger threshold.Ledger, events threshold.EventSink) (*threshold.Engine,
	error) {

	sigScheme, err := scheme.ByName(cfg.Scheme)
	if err != nil {
		return nil, err
	}

	messages, err := threshold.MessagePolicyByName(cfg.MessagePolicy)
	if err != nil {
		return nil, err
	}

	log.Debugf("Creating engine with scheme=%v, message_policy=%v",
		cfg.Scheme, cfg.MessagePolicy)

	return threshold.NewEngine(&threshold.Config{
		Store:    store,
		Scheme:   sigScheme,
		Chain:    chain,
		Ledger:   ledger,
		Events:   events,
		Messages: messages,
	})
}
