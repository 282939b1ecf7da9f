package commands

import (
	"github.com/lightninglabs/taproot-threshold/threshold"
	"github.com/urfave/cli"
)

const (
	targetName = "target"
	opName     = "op"
	amountName = "amount"
	loName     = "lo"
	hiName     = "hi"
)

var scriptCommands = []cli.Command{
	{
		Name:      "script",
		ShortName: "s",
		Usage:     "Work with threshold scripts.",
		Category:  "Scripts",
		Subcommands: []cli.Command{
			scriptHashCommand,
		},
	},
}

// scriptFlags describe a script by its fields.
var scriptFlags = []cli.Flag{
	cli.StringFlag{
		Name:  targetName,
		Usage: "the account receiving the funds, in hex",
	},
	cli.StringFlag{
		Name:  opName,
		Value: threshold.OpTransfer.String(),
		Usage: "the operation of the script",
	},
	cli.Uint64Flag{
		Name:  amountName,
		Usage: "the amount the script moves",
	},
	cli.Uint64Flag{
		Name:  loName,
		Usage: "the first block height the script may execute at",
	},
	cli.Uint64Flag{
		Name:  hiName,
		Usage: "the last block height the script may execute at",
	},
}

// parseScript reads the script fields from the flags.
func parseScript(ctx *cli.Context) (threshold.AccountID, threshold.OpCode,
	uint64, threshold.TimeLock, error) {

	var lock threshold.TimeLock

	target, err := parseAccountFlag(ctx, targetName)
	if err != nil {
		return target, 0, 0, lock, err
	}

	op, err := threshold.ParseOpCode(ctx.String(opName))
	if err != nil {
		return target, 0, 0, lock, err
	}

	lock = threshold.TimeLock{
		Lo: ctx.Uint64(loName),
		Hi: ctx.Uint64(hiName),
	}

	return target, op, ctx.Uint64(amountName), lock, nil
}

var scriptHashCommand = cli.Command{
	Name:      "hash",
	ShortName: "h",
	Usage:     "compute the hash a script is authorized under",
	Flags:     scriptFlags,
	Action:    scriptHash,
}

func scriptHash(ctx *cli.Context) error {
	target, op, amount, lock, err := parseScript(ctx)
	if err != nil {
		return err
	}

	hash := threshold.ComputeScriptHash(target, op, amount, lock)

	printJSON(struct {
		ScriptHash string `json:"script_hash"`
		Op         string `json:"op"`
		TimeLock   string `json:"time_lock"`
	}{
		ScriptHash: hash.String(),
		Op:         op.String(),
		TimeLock:   lock.String(),
	})

	return nil
}
