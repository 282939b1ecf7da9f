package commands

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightninglabs/taproot-threshold/scheme"
	"github.com/lightninglabs/taproot-threshold/threshold"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/urfave/cli"
)

const (
	keyName          = "key"
	leafName         = "leaf"
	internalKeyName  = "internal_key"
	addrName         = "addr"
	pubKeyName       = "pub_key"
	controlBlockName = "control_block"
)

var mastCommands = []cli.Command{
	{
		Name:      "mast",
		ShortName: "m",
		Usage:     "Compute script trees and their proofs.",
		Category:  "Script trees",
		Subcommands: []cli.Command{
			mastRootCommand,
			mastProofCommand,
			mastAddressCommand,
			mastLeafCommand,
			mastVerifyCommand,
		},
	},
}

var scriptKeysFlag = cli.StringSliceFlag{
	Name: keyName,
	Usage: "a script key of the tree in hex, repeat the flag for each " +
		"key in tree order",
}

// hashStrings renders hashes in their display byte order.
func hashStrings(hashes []chainhash.Hash) []string {
	return fn.Map(hashes, func(h chainhash.Hash) string {
		return h.String()
	})
}

// parseTree builds the script tree from the repeated key flag.
func parseTree(ctx *cli.Context) (*mast.Mast, error) {
	rawKeys, err := parseKeysFlag(ctx, keyName)
	if err != nil {
		return nil, err
	}

	keys, err := mast.NewXOnlyKeys(rawKeys)
	if err != nil {
		return nil, err
	}

	return mast.New(keys), nil
}

var mastRootCommand = cli.Command{
	Name:      "root",
	ShortName: "r",
	Usage:     "compute the merkle root of a script tree",
	Flags:     []cli.Flag{scriptKeysFlag},
	Action:    mastRoot,
}

func mastRoot(ctx *cli.Context) error {
	tree, err := parseTree(ctx)
	if err != nil {
		return err
	}

	root, err := tree.CalcRoot()
	if err != nil {
		return err
	}

	printJSON(struct {
		Root string `json:"root"`
	}{
		Root: root.String(),
	})

	return nil
}

var mastProofCommand = cli.Command{
	Name:      "proof",
	ShortName: "p",
	Usage:     "compute the merkle proof of a script key",
	Description: "Prints the sibling path of the leaf from the leaf level " +
		"up to the root. If the internal key is given, the control " +
		"block disclosing the leaf is printed as well.",
	Flags: []cli.Flag{
		scriptKeysFlag,
		cli.StringFlag{
			Name:  leafName,
			Usage: "the script key to prove, in hex",
		},
		cli.StringFlag{
			Name:  internalKeyName,
			Usage: "the internal key of the address, in hex",
		},
	},
	Action: mastProof,
}

func mastProof(ctx *cli.Context) error {
	tree, err := parseTree(ctx)
	if err != nil {
		return err
	}

	leaf, err := parseKeyFlag(ctx, leafName)
	if err != nil {
		return err
	}

	proof, err := tree.GenerateMerkleProof(leaf)
	if err != nil {
		return err
	}

	resp := struct {
		Siblings     []string `json:"siblings"`
		ControlBlock string   `json:"control_block,omitempty"`
	}{
		Siblings: hashStrings(proof),
	}

	if ctx.IsSet(internalKeyName) {
		internal, err := parseKeyFlag(ctx, internalKeyName)
		if err != nil {
			return err
		}

		cb, err := threshold.NewControlBlock(
			internal, tree.Keys(), leaf,
		)
		if err != nil {
			return err
		}
		resp.ControlBlock = hex.EncodeToString(cb.Bytes())
	}

	printJSON(resp)
	return nil
}

var mastAddressCommand = cli.Command{
	Name:      "address",
	ShortName: "a",
	Usage:     "derive the threshold address of a key set",
	Description: "Tweaks the internal key with the root of the script " +
		"tree using the signature scheme selected with --scheme. " +
		"Nothing is stored.",
	Flags: []cli.Flag{
		scriptKeysFlag,
		cli.StringFlag{
			Name:  internalKeyName,
			Usage: "the internal key of the address, in hex",
		},
	},
	Action: mastAddress,
}

func mastAddress(ctx *cli.Context) error {
	tree, err := parseTree(ctx)
	if err != nil {
		return err
	}

	internal, err := parseKeyFlag(ctx, internalKeyName)
	if err != nil {
		return err
	}

	sigScheme, err := scheme.ByName(ctx.GlobalString("scheme"))
	if err != nil {
		return err
	}

	tweaked, err := tree.GenerateTweakPubKey(internal, sigScheme)
	if err != nil {
		return err
	}

	printJSON(struct {
		Addr string `json:"addr"`
	}{
		Addr: hex.EncodeToString(tweaked[:]),
	})

	return nil
}

var mastLeafCommand = cli.Command{
	Name:      "leaf",
	ShortName: "l",
	Usage:     "compute the leaf hash of a script key",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  keyName,
			Usage: "the script key, in hex",
		},
	},
	Action: mastLeaf,
}

func mastLeaf(ctx *cli.Context) error {
	key, err := parseKeyFlag(ctx, keyName)
	if err != nil {
		return err
	}

	printJSON(struct {
		Leaf string `json:"leaf"`
	}{
		Leaf: mast.TapLeafHash(key).String(),
	})

	return nil
}

var mastVerifyCommand = cli.Command{
	Name:      "verify",
	ShortName: "v",
	Usage:     "check that a control block proves a script key",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  addrName,
			Usage: "the threshold address, in hex",
		},
		cli.StringFlag{
			Name:  pubKeyName,
			Usage: "the disclosed script key, in hex",
		},
		cli.StringFlag{
			Name:  controlBlockName,
			Usage: "the control block, in hex",
		},
	},
	Action: mastVerify,
}

func mastVerify(ctx *cli.Context) error {
	addr, err := parseAccountFlag(ctx, addrName)
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

	engine, cleanUp, err := getEngine(ctx, fn.None[uint64]())
	if err != nil {
		return err
	}
	defer cleanUp()

	err = engine.VerifyControlBlock(addr, pubKey, controlBlock)
	if err != nil {
		return err
	}

	printJSON(struct {
		Valid bool `json:"valid"`
	}{
		Valid: true,
	})

	return nil
}
