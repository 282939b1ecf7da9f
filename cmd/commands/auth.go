package commands

import (
	"github.com/lightninglabs/taproot-threshold/threshold"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/urfave/cli"
)

const (
	sigName        = "sig"
	msgName        = "msg"
	scriptHashName = "script_hash"
	heightName     = "height"
)

var authCommands = []cli.Command{
	{
		Name:      "auth",
		ShortName: "au",
		Usage:     "Manage script authorizations.",
		Category:  "Authorizations",
		Subcommands: []cli.Command{
			passScriptCommand,
			showAuthCommand,
			revokeAddrCommand,
			pruneSigsCommand,
		},
	},
}

var heightFlag = cli.Uint64Flag{
	Name:  heightName,
	Usage: "the current block height of the host chain",
}

var passScriptCommand = cli.Command{
	Name:      "pass",
	ShortName: "p",
	Usage:     "authorize a script with a threshold signature",
	Description: "Verifies that a script key of the address signed the " +
		"message and records the authorization of the script hash. " +
		"The script hash is either given directly or computed from " +
		"the script flags.",
	Flags: append([]cli.Flag{
		cli.StringFlag{
			Name:  addrName,
			Usage: "the threshold address, in hex",
		},
		cli.StringFlag{
			Name:  sigName,
			Usage: "the aggregate signature, in hex",
		},
		cli.StringFlag{
			Name:  pubKeyName,
			Usage: "the script key that signed, in hex",
		},
		cli.StringFlag{
			Name:  controlBlockName,
			Usage: "the control block of the script key, in hex",
		},
		cli.StringFlag{
			Name:  msgName,
			Usage: "the signed message, in hex",
		},
		cli.StringFlag{
			Name:  scriptHashName,
			Usage: "the script hash to authorize, in hex",
		},
		heightFlag,
	}, scriptFlags...),
	Action: passScript,
}

func passScript(ctx *cli.Context) error {
	addr, err := parseAccountFlag(ctx, addrName)
	if err != nil {
		return err
	}
	sig, err := parseHexFlag(ctx, sigName)
	if err != nil {
		return err
	}
	pubKey, err := parseHexFlag(ctx, pubKeyName)
	if err != nil {
		return err
	}
	controlBlock, err := parseHexFlag(ctx, controlBlockName)
	if err != nil {
		return err
	}
	msg, err := parseHexFlag(ctx, msgName)
	if err != nil {
		return err
	}

	var hash threshold.ScriptHash
	if ctx.IsSet(scriptHashName) {
		hash, err = threshold.ParseScriptHash(ctx.String(scriptHashName))
		if err != nil {
			return err
		}
	} else {
		target, op, amount, lock, err := parseScript(ctx)
		if err != nil {
			return err
		}
		hash = threshold.ComputeScriptHash(target, op, amount, lock)
	}

	ctxc, cancel := getContext()
	defer cancel()

	engine, cleanUp, err := getEngine(ctx, parseHeightFlag(ctx))
	if err != nil {
		return err
	}
	defer cleanUp()

	err = engine.PassScript(ctxc, &threshold.PassScriptRequest{
		Addr:         addr,
		Signature:    sig,
		PubKey:       pubKey,
		ControlBlock: controlBlock,
		Message:      msg,
		ScriptHash:   hash,
	})
	if err != nil {
		return err
	}

	printJSON(struct {
		ScriptHash string `json:"script_hash"`
		Addr       string `json:"addr"`
	}{
		ScriptHash: hash.String(),
		Addr:       addr.String(),
	})

	return nil
}

var showAuthCommand = cli.Command{
	Name:      "show",
	ShortName: "s",
	Usage:     "show the address that authorized a script hash",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  scriptHashName,
			Usage: "the script hash, in hex",
		},
	},
	Action: showAuth,
}

func showAuth(ctx *cli.Context) error {
	hash, err := threshold.ParseScriptHash(ctx.String(scriptHashName))
	if err != nil {
		return err
	}

	ctxc, cancel := getContext()
	defer cancel()

	engine, cleanUp, err := getEngine(ctx, fn.None[uint64]())
	if err != nil {
		return err
	}
	defer cleanUp()

	addr, err := engine.Authorization(ctxc, hash)
	if err != nil {
		return err
	}

	printJSON(struct {
		ScriptHash string `json:"script_hash"`
		Addr       string `json:"addr"`
	}{
		ScriptHash: hash.String(),
		Addr:       addr.String(),
	})

	return nil
}

var revokeAddrCommand = cli.Command{
	Name:      "revoke",
	ShortName: "r",
	Usage:     "forget the keys of a threshold address",
	Description: "Removes the stored key list of the address. Scripts " +
		"it already authorized stay executable.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  addrName,
			Usage: "the threshold address, in hex",
		},
	},
	Action: revokeAddr,
}

func revokeAddr(ctx *cli.Context) error {
	addr, err := parseAccountFlag(ctx, addrName)
	if err != nil {
		return err
	}

	ctxc, cancel := getContext()
	defer cancel()

	engine, cleanUp, err := getEngine(ctx, fn.None[uint64]())
	if err != nil {
		return err
	}
	defer cleanUp()

	return engine.RevokeAddress(ctxc, addr)
}

var pruneSigsCommand = cli.Command{
	Name:      "prune",
	ShortName: "pr",
	Usage:     "forget used signatures that expired",
	Flags:     []cli.Flag{heightFlag},
	Action:    pruneSigs,
}

func pruneSigs(ctx *cli.Context) error {
	ctxc, cancel := getContext()
	defer cancel()

	engine, cleanUp, err := getEngine(ctx, parseHeightFlag(ctx))
	if err != nil {
		return err
	}
	defer cleanUp()

	pruned, err := engine.PruneSignatures(ctxc)
	if err != nil {
		return err
	}

	printJSON(struct {
		Pruned int64 `json:"pruned"`
	}{
		Pruned: pruned,
	})

	return nil
}
