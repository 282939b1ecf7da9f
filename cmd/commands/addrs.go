package commands

import (
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/urfave/cli"
)

var addrCommands = []cli.Command{
	{
		Name:      "addrs",
		ShortName: "ad",
		Usage:     "Manage stored threshold addresses.",
		Category:  "Addresses",
		Subcommands: []cli.Command{
			generateAddrCommand,
			addrKeysCommand,
		},
	},
}

var generateAddrCommand = cli.Command{
	Name:      "generate",
	ShortName: "g",
	Usage:     "generate and store a threshold address",
	Description: "The first key is the internal key of the address, all " +
		"following keys form the script tree in the given order. At " +
		"least two script keys are needed.",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name: keyName,
			Usage: "a key in hex, repeat the flag for each key " +
				"starting with the internal key",
		},
	},
	Action: generateAddr,
}

func generateAddr(ctx *cli.Context) error {
	keys, err := parseKeysFlag(ctx, keyName)
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

	addr, err := engine.GenerateAddress(ctxc, keys)
	if err != nil {
		return err
	}

	printJSON(struct {
		Addr string `json:"addr"`
	}{
		Addr: addr.String(),
	})

	return nil
}

var addrKeysCommand = cli.Command{
	Name:      "keys",
	ShortName: "k",
	Usage:     "show the keys a stored address was generated from",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  addrName,
			Usage: "the threshold address, in hex",
		},
	},
	Action: addrKeys,
}

func addrKeys(ctx *cli.Context) error {
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

	keys, err := engine.ScriptKeys(ctxc, addr)
	if err != nil {
		return err
	}

	printJSON(struct {
		InternalKey string   `json:"internal_key"`
		ScriptKeys  []string `json:"script_keys"`
	}{
		InternalKey: keys[0].String(),
		ScriptKeys: fn.Map(keys[1:], func(k mast.XOnly) string {
			return k.String()
		}),
	})

	return nil
}
