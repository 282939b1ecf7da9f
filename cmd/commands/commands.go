package commands

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btclog/v2"
	thresh "github.com/lightninglabs/taproot-threshold"
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightninglabs/taproot-threshold/threshcfg"
	"github.com/lightninglabs/taproot-threshold/threshold"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/urfave/cli"
)

const (
	// Environment variables names that can be used to set the global flags.
	envVarThreshDir     = "THRESHCLI_THRESHDIR"
	envVarScheme        = "THRESHCLI_SCHEME"
	envVarMessagePolicy = "THRESHCLI_MESSAGEPOLICY"
	envVarDBFile        = "THRESHCLI_DBFILE"
)

var (
	// stdout is where command output is written to.
	stdout io.Writer = os.Stdout

	// errOffline is returned by the ledger of the command line tool, which
	// has no access to account balances.
	errOffline = errors.New("balance transfers are not available offline")

	// errNoHeight is returned when a command needs the chain height but
	// none was given.
	errNoHeight = errors.New("--height must be set")
)

// NewApp creates a new threshcli app with all the available commands.
func NewApp() cli.App {
	app := cli.NewApp()
	app.Name = "threshcli"
	app.Version = thresh.Version()
	app.Usage = "operator tool for threshold addresses and script " +
		"authorizations"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      "threshdir",
			Value:     threshcfg.DefaultThreshDir,
			Usage:     "The path to the engine's base directory.",
			TakesFile: true,
			EnvVar:    envVarThreshDir,
		},
		cli.StringFlag{
			Name:   "scheme",
			Value:  "sr25519",
			Usage:  "The signature scheme, sr25519 or bip340.",
			EnvVar: envVarScheme,
		},
		cli.StringFlag{
			Name: "messagepolicy",
			Usage: "How signed messages are interpreted: opaque, " +
				"height or bound.",
			Value:  "opaque",
			EnvVar: envVarMessagePolicy,
		},
		cli.StringFlag{
			Name: "dbfile",
			Usage: "The sqlite database file, defaults to the one " +
				"in the engine's data directory.",
			TakesFile: true,
			EnvVar:    envVarDBFile,
		},
	}

	// Add all the available commands.
	app.Commands = append(app.Commands, mastCommands...)
	app.Commands = append(app.Commands, scriptCommands...)
	app.Commands = append(app.Commands, addrCommands...)
	app.Commands = append(app.Commands, authCommands...)

	return *app
}

// Fatal prints the error and exits.
func Fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[threshcli] %v\n", err)
	os.Exit(1)
}

func getContext() (context.Context, func()) {
	return signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
}

func printJSON(resp interface{}) {
	b, err := json.Marshal(resp)
	if err != nil {
		Fatal(err)
	}

	var out bytes.Buffer
	_ = json.Indent(&out, b, "", "\t")
	out.WriteString("\n")
	_, _ = out.WriteTo(stdout)
}

// offlineLedger refuses every transfer.
type offlineLedger struct{}

// Transfer always fails.
func (offlineLedger) Transfer(context.Context, threshold.AccountID,
	threshold.AccountID, uint64) error {

	return errOffline
}

// getConfig builds the engine config from the global flags.
func getConfig(ctx *cli.Context) (*threshcfg.Config, error) {
	cfg := threshcfg.DefaultConfig()
	cfg.ThreshDir = ctx.GlobalString("threshdir")
	cfg.Scheme = ctx.GlobalString("scheme")
	cfg.MessagePolicy = ctx.GlobalString("messagepolicy")
	if dbFile := ctx.GlobalString("dbfile"); dbFile != "" {
		cfg.Sqlite.DatabaseFileName = dbFile
	}

	return threshcfg.ValidateConfig(cfg, btclog.Disabled)
}

// getEngine opens the store and creates an engine over it that sees the
// given chain height. Operations that need the height fail when it is unset.
// The returned function closes the store.
func getEngine(ctx *cli.Context, height fn.Option[uint64]) (*threshold.Engine,
	func(), error) {

	cfg, err := getConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := threshcfg.BuildStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanUp := func() {
		_ = store.Close()
	}

	chain := threshold.ChainHeightFunc(
		func(context.Context) (uint64, error) {
			return height.UnwrapOrErr(errNoHeight)
		},
	)
	engine, err := threshcfg.BuildEngine(
		cfg, store, chain, offlineLedger{}, nil,
	)
	if err != nil {
		cleanUp()
		return nil, nil, err
	}

	return engine, cleanUp, nil
}

// parseHeightFlag returns the chain height given on the command line, if
// any.
func parseHeightFlag(ctx *cli.Context) fn.Option[uint64] {
	if !ctx.IsSet(heightName) {
		return fn.None[uint64]()
	}

	return fn.Some(ctx.Uint64(heightName))
}

// parseHexFlag decodes the hex value of a required flag.
func parseHexFlag(ctx *cli.Context, name string) ([]byte, error) {
	value := ctx.String(name)
	if value == "" {
		return nil, fmt.Errorf("%s must be set", name)
	}

	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}

	return b, nil
}

// parseKeyFlag decodes a single x-only key flag.
func parseKeyFlag(ctx *cli.Context, name string) (mast.XOnly, error) {
	b, err := parseHexFlag(ctx, name)
	if err != nil {
		return mast.XOnly{}, err
	}

	return mast.NewXOnly(b)
}

// parseKeysFlag decodes a repeated key flag, keeping the order in which the
// keys were given.
func parseKeysFlag(ctx *cli.Context, name string) ([][]byte, error) {
	values := ctx.StringSlice(name)
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one %s must be set", name)
	}

	keys := make([][]byte, len(values))
	for i, value := range values {
		key, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %d: %w", name, i,
				err)
		}
		keys[i] = key
	}

	return keys, nil
}

// parseAccountFlag decodes a required account flag.
func parseAccountFlag(ctx *cli.Context,
	name string) (threshold.AccountID, error) {

	value := ctx.String(name)
	if value == "" {
		return threshold.AccountID{}, fmt.Errorf("%s must be set", name)
	}

	return threshold.ParseAccountID(value)
}
