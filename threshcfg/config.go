// nolint:lll
package threshcfg

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog/v2"
	"github.com/jessevdk/go-flags"
	thresh "github.com/lightninglabs/taproot-threshold"
	"github.com/lightninglabs/taproot-threshold/build"
	"github.com/lightninglabs/taproot-threshold/scheme"
	"github.com/lightninglabs/taproot-threshold/threshdb"
	"github.com/lightninglabs/taproot-threshold/threshold"
)

const (
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "threshd.log"
	defaultConfigFileName = "threshd.conf"

	// DatabaseBackendSqlite is the name of the SQLite database backend.
	DatabaseBackendSqlite = "sqlite"

	// DatabaseBackendPostgres is the name of the Postgres database backend.
	DatabaseBackendPostgres = "postgres"

	defaultSqliteDatabaseFileName = "threshold.db"

	defaultPostgresPort = 5432

	defaultPostgresMaxConnections = 10
)

var (
	// DefaultThreshDir is the default directory where the threshold engine
	// tries to find its configuration file and store its data.
	DefaultThreshDir = btcutil.AppDataDir("threshd", false)

	// DefaultConfigFile is the default full path of the configuration
	// file.
	DefaultConfigFile = filepath.Join(DefaultThreshDir, defaultConfigFileName)

	defaultDataDir = filepath.Join(DefaultThreshDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultThreshDir, defaultLogDirname)

	defaultSqliteDatabasePath = filepath.Join(
		defaultDataDir, defaultSqliteDatabaseFileName,
	)
)

// Config is the main config of the threshold engine.
type Config struct {
	ShowVersion bool `long:"version" description:"Display version information and exit"`

	ThreshDir  string `long:"threshdir" description:"The base directory that contains the config file, the database and the logs"`
	ConfigFile string `long:"configfile" description:"Path to configuration file"`

	DataDir    string `long:"datadir" description:"The directory to store the engine's data within"`
	LogDir     string `long:"logdir" description:"Directory to log output."`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	Scheme        string `long:"scheme" description:"The signature scheme threshold addresses are derived and verified with" choice:"sr25519" choice:"bip340"`
	MessagePolicy string `long:"messagepolicy" description:"How signed messages are interpreted: opaque messages never expire, height messages carry their last valid block height, bound messages carry the authorized script hash followed by that height" choice:"opaque" choice:"height" choice:"bound"`

	DatabaseBackend string                   `long:"databasebackend" description:"The database backend to use for storing all engine state." choice:"sqlite" choice:"postgres"`
	Sqlite          *threshdb.SqliteConfig   `group:"sqlite" namespace:"sqlite"`
	Postgres        *threshdb.PostgresConfig `group:"postgres" namespace:"postgres"`

	Logging *build.LogConfig `group:"logging" namespace:"logging"`

	// LogWriter is the root log writer that all of the subsystem loggers
	// write to.
	LogWriter *build.RotatingLogWriter

	// LogMgr is the sublogger manager that is used to create subsystem
	// loggers.
	LogMgr *build.SubLoggerManager
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	logWriter := build.NewRotatingLogWriter()
	logConfig := build.DefaultLogConfig()

	return Config{
		ThreshDir:       DefaultThreshDir,
		ConfigFile:      DefaultConfigFile,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		DebugLevel:      defaultLogLevel,
		Scheme:          scheme.Sr25519Name,
		MessagePolicy:   "opaque",
		DatabaseBackend: DatabaseBackendSqlite,
		Sqlite: &threshdb.SqliteConfig{
			DatabaseFileName: defaultSqliteDatabasePath,
		},
		Postgres: &threshdb.PostgresConfig{
			Host:               "localhost",
			Port:               defaultPostgresPort,
			MaxOpenConnections: defaultPostgresMaxConnections,
		},
		Logging:   logConfig,
		LogWriter: logWriter,
		LogMgr:    build.NewSubLoggerManager(os.Stdout, logConfig),
	}
}

// LoadConfig initializes and parses the config using a config file and the
// given command line arguments.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(args []string) (*Config, btclog.Logger, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(
		args,
	); err != nil {
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", thresh.Version())
		os.Exit(0)
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their threshdir, then we should assume they intend to use
	// the config file within it.
	configFileDir := CleanAndExpandPath(preCfg.ThreshDir)
	configFilePath := CleanAndExpandPath(preCfg.ConfigFile)
	switch {
	// User specified --threshdir but no --configfile. Update the config
	// file path to the config directory, but don't require it to exist.
	case configFileDir != DefaultThreshDir &&
		configFilePath == DefaultConfigFile:

		configFilePath = filepath.Join(
			configFileDir, defaultConfigFileName,
		)

	// User did specify an explicit --configfile, so we check that it does
	// exist under that path to avoid surprises.
	case configFilePath != DefaultConfigFile:
		if !fileExists(configFilePath) {
			return nil, nil, fmt.Errorf("specified config file does "+
				"not exist in %s", configFilePath)
		}
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(configFilePath)
	if err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return nil, nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	flagParser := flags.NewParser(&cfg, flags.Default)
	if _, err := flagParser.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	cfgLogger := cfg.LogMgr.GenSubLogger(Subsystem)

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(cfg, cfgLogger)
	if err != nil {
		// Log help message in case of usage error.
		if _, ok := err.(*usageError); ok {
			cfgLogger.Warnf("Incorrect usage: %v", usageMessage)
		}

		cfgLogger.Warnf("Error validating config: %v", err)
		return nil, nil, err
	}

	// Initialize the log manager with the actual logging configuration,
	// writing to both stdout and the rotating log file.
	err = cleanCfg.LogWriter.Open(
		cleanCfg.Logging, filepath.Join(
			cleanCfg.LogDir, defaultLogFilename,
		),
	)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		return nil, nil, err
	}

	cleanCfg.LogMgr = build.NewSubLoggerManager(
		io.MultiWriter(os.Stdout, cleanCfg.LogWriter), cleanCfg.Logging,
	)
	cfgLogger = cleanCfg.LogMgr.GenSubLogger(Subsystem)
	UseLogger(cfgLogger)

	// Initialize logging at the default logging level.
	thresh.SetupLoggers(cleanCfg.LogMgr)

	// Parse, validate, and set debug log level(s).
	err = build.ParseAndSetDebugLevels(cleanCfg.DebugLevel, cleanCfg.LogMgr)
	if err != nil {
		str := "error parsing debug level: %v"
		cfgLogger.Warnf(str, err)
		return nil, nil, fmt.Errorf(str, err)
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		cfgLogger.Warnf("%v", configFileError)
	}

	return cleanCfg, cfgLogger, nil
}

// usageError is an error type that signals a problem with the supplied flags.
type usageError struct {
	err error
}

// Error returns the error string.
//
// NOTE: This is part of the error interface.
func (u *usageError) Error() string {
	return u.err.Error()
}

// ValidateConfig check the given configuration to be sane. This makes sure no
// illegal values or combination of values are set. All file system paths are
// normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config, cfgLogger btclog.Logger) (*Config, error) {
	// If the provided base directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	threshDir := CleanAndExpandPath(cfg.ThreshDir)
	if threshDir != DefaultThreshDir {
		cfg.DataDir = filepath.Join(threshDir, defaultDataDirname)
		cfg.LogDir = filepath.Join(threshDir, defaultLogDirname)
	}

	funcName := "ValidateConfig"
	mkErr := func(format string, args ...interface{}) error {
		return fmt.Errorf(funcName+": "+format, args...)
	}
	makeDirectory := func(dir string) error {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			// Show a nicer error message if it's because a symlink
			// is linked to a directory that does not exist
			// (probably because it's not mounted).
			if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
				link, lerr := os.Readlink(e.Path)
				if lerr == nil {
					str := "is symlink %s -> %s mounted?"
					err = fmt.Errorf(str, e.Path, link)
				}
			}

			str := "Failed to create directory '%s': %v"
			return mkErr(str, dir, err)
		}

		return nil
	}

	// As soon as we're done parsing configuration options, ensure all
	// paths to directories and files are cleaned and expanded before
	// attempting to use them later on.
	cfg.DataDir = CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)

	// Create the base directory and all other sub directories if they
	// don't exist yet.
	dirs := []string{threshDir, cfg.DataDir, cfg.LogDir}
	for _, dir := range dirs {
		if err := makeDirectory(dir); err != nil {
			return nil, err
		}
	}

	if _, err := scheme.ByName(cfg.Scheme); err != nil {
		return nil, &usageError{mkErr("%v", err)}
	}
	if _, err := threshold.MessagePolicyByName(cfg.MessagePolicy); err != nil {
		return nil, &usageError{mkErr("%v", err)}
	}

	if err := cfg.Logging.Validate(); err != nil {
		return nil, &usageError{mkErr("%v", err)}
	}

	switch cfg.DatabaseBackend {
	case DatabaseBackendSqlite:
		// The database file lives in the data directory unless it was
		// set explicitly.
		if cfg.Sqlite.DatabaseFileName == defaultSqliteDatabasePath {
			cfg.Sqlite.DatabaseFileName = filepath.Join(
				cfg.DataDir, defaultSqliteDatabaseFileName,
			)
		}
		cfg.Sqlite.DatabaseFileName = CleanAndExpandPath(
			cfg.Sqlite.DatabaseFileName,
		)

		cfgLogger.Debugf("Using sqlite database at %v",
			cfg.Sqlite.DatabaseFileName)

	case DatabaseBackendPostgres:
		if cfg.Postgres.DBName == "" {
			return nil, &usageError{mkErr("postgres database " +
				"name must be set")}
		}

		cfgLogger.Debugf("Using postgres database %v",
			cfg.Postgres.DSN(true))

	default:
		return nil, &usageError{mkErr("unknown database backend: %v",
			cfg.DatabaseBackend)}
	}

	return &cfg, nil
}

// fileExists reports whether the named file or directory exists.
// This function is taken from https://github.com/btcsuite/btcd
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
