package taprootthreshold

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/taproot-threshold/build"
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightninglabs/taproot-threshold/threshdb"
	"github.com/lightninglabs/taproot-threshold/threshold"
)

// SetupLoggers initializes all package-global logger variables and registers
// them with the given manager.
func SetupLoggers(mgr *build.SubLoggerManager) {
	AddSubLogger(mgr, mast.Subsystem, mast.UseLogger)
	AddSubLogger(mgr, threshold.Subsystem, threshold.UseLogger)
	AddSubLogger(mgr, threshdb.Subsystem, threshdb.UseLogger)
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(mgr *build.SubLoggerManager, subsystem string,
	useLoggers ...func(btclog.Logger)) {

	logger := mgr.GenSubLogger(subsystem)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}
