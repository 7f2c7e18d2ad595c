package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/aymericcousaert/eclair/keychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[chankeys] %v\n", err)
	os.Exit(1)
}

func printJSON(resp interface{}) error {
	out, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

// chainParams maps the network flag onto the chain parameters carrying the
// genesis hash the key manager derives against.
func chainParams(ctx *cli.Context) (*chaincfg.Params, error) {
	network := ctx.GlobalString("network")
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network: %v", network)
	}
}

// readSeed obtains the 32 byte master seed, either from the --seed_file flag
// or interactively from the terminal. The seed is never taken from a command
// line argument and never written back to any output stream.
func readSeed(ctx *cli.Context) ([]byte, error) {
	var seedHex string
	switch {
	case ctx.GlobalIsSet("seed_file"):
		raw, err := os.ReadFile(ctx.GlobalString("seed_file"))
		if err != nil {
			return nil, err
		}
		seedHex = strings.TrimSpace(string(raw))

	default:
		fmt.Print("Enter hex encoded seed: ")

		// The variable syscall.Stdin is of a different type in the
		// Windows API that's why we need the explicit cast. And of
		// course the linter doesn't like it either.
		raw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
		fmt.Println()
		if err != nil {
			return nil, err
		}
		seedHex = strings.TrimSpace(string(raw))
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("seed must be hex encoded")
	}

	return seed, nil
}

func newKeyManager(ctx *cli.Context) (*keychain.LocalKeyManager, error) {
	params, err := chainParams(ctx)
	if err != nil {
		return nil, err
	}

	seed, err := readSeed(ctx)
	if err != nil {
		return nil, err
	}

	return keychain.NewLocalKeyManager(seed, *params.GenesisHash)
}

// channelPath resolves the channel key path from whichever of the three
// path flags the caller provided.
func channelPath(ctx *cli.Context) (keychain.KeyPath, error) {
	switch {
	case ctx.IsSet("outpoint"):
		op, err := parseOutPoint(ctx.String("outpoint"))
		if err != nil {
			return nil, err
		}
		return keychain.PathFromFunderOutpoint(op), nil

	case ctx.IsSet("funding_script"):
		script, err := hex.DecodeString(ctx.String("funding_script"))
		if err != nil {
			return nil, fmt.Errorf("funding_script must be hex " +
				"encoded")
		}
		return keychain.PathFromFundingScript(script), nil

	case ctx.IsSet("counter"):
		return keychain.PathFromFundeePubkeyIndex(
			uint32(ctx.Uint64("account")), ctx.Uint64("counter"),
		), nil

	default:
		return nil, fmt.Errorf("one of --outpoint, --funding_script " +
			"or --counter is required")
	}
}

func parseOutPoint(s string) (*wire.OutPoint, error) {
	split := strings.Split(s, ":")
	if len(split) != 2 {
		return nil, fmt.Errorf("expecting outpoint to be in format " +
			"of: txid:index")
	}

	index, err := strconv.ParseInt(split[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("unable to decode output index: %w", err)
	}

	txid, err := chainhash.NewHashFromStr(split[0])
	if err != nil {
		return nil, fmt.Errorf("unable to parse hex string: %w", err)
	}

	return &wire.OutPoint{
		Hash:  *txid,
		Index: uint32(index),
	}, nil
}

var pathFlags = []cli.Flag{
	cli.StringFlag{
		Name: "outpoint",
		Usage: "as channel funder, the txid:index of the first " +
			"input consumed by the funding transaction",
	},
	cli.StringFlag{
		Name: "funding_script",
		Usage: "as channel fundee, the hex encoded 2-of-2 funding " +
			"witness script",
	},
	cli.Uint64Flag{
		Name: "account",
		Usage: "as channel fundee before the funding script is " +
			"known, the per-peer account number",
	},
	cli.Uint64Flag{
		Name: "counter",
		Usage: "as channel fundee before the funding script is " +
			"known, the per-peer channel counter",
	},
}

var nodeIDCommand = cli.Command{
	Name:  "nodeid",
	Usage: "Show the node's public identity key.",
	Description: `
	Derive the node identity public key for the given network. The same
	seed yields unrelated identities on different networks.
	`,
	Action: nodeID,
}

func nodeID(ctx *cli.Context) error {
	manager, err := newKeyManager(ctx)
	if err != nil {
		return err
	}

	return printJSON(struct {
		NodeID string `json:"node_id"`
	}{
		NodeID: hex.EncodeToString(
			manager.NodeID().SerializeCompressed(),
		),
	})
}

var channelKeysCommand = cli.Command{
	Name:  "channelkeys",
	Usage: "Show the public base keys of a channel.",
	ArgsUsage: "(--outpoint=txid:index | --funding_script=script | " +
		"--account=N --counter=N)",
	Description: `
	Resolve the channel key path from the provided channel metadata and
	derive the channel's public base keys. The funder identifies its
	channel by the first consumed outpoint; the fundee by the funding
	witness script, or, before the script exists, by an account number
	and channel counter.
	`,
	Flags:  pathFlags,
	Action: channelKeys,
}

func channelKeys(ctx *cli.Context) error {
	manager, err := newKeyManager(ctx)
	if err != nil {
		return err
	}

	path, err := channelPath(ctx)
	if err != nil {
		return err
	}

	type baseKey struct {
		Family string `json:"family"`
		PubKey string `json:"pub_key"`
	}

	familyNames := map[keychain.KeyFamily]string{
		keychain.KeyFamilyFunding:        "funding",
		keychain.KeyFamilyRevocationBase: "revocation_base",
		keychain.KeyFamilyPaymentBase:    "payment_base",
		keychain.KeyFamilyDelayBase:      "delay_base",
		keychain.KeyFamilyHtlcBase:       "htlc_base",
		keychain.KeyFamilyRevocationRoot: "revocation_root",
	}

	keys := make([]baseKey, 0, len(keychain.BaseKeyFamilies))
	for _, family := range keychain.BaseKeyFamilies {
		key, err := manager.DeriveBaseKey(path, family)
		if err != nil {
			return err
		}

		keys = append(keys, baseKey{
			Family: familyNames[family],
			PubKey: hex.EncodeToString(
				key.PubKey().SerializeCompressed(),
			),
		})
	}

	return printJSON(struct {
		KeyPath  string    `json:"key_path"`
		BaseKeys []baseKey `json:"base_keys"`
	}{
		KeyPath:  path.String(),
		BaseKeys: keys,
	})
}

var commitmentPointCommand = cli.Command{
	Name:  "commitmentpoint",
	Usage: "Show a channel's commitment point at the given index.",
	ArgsUsage: "(--outpoint=txid:index | --funding_script=script | " +
		"--account=N --counter=N) --index=N",
	Description: `
	Derive the public commitment point of a channel at the given
	commitment index. Only the point is shown; the matching secret never
	leaves the key manager.
	`,
	Flags: append(pathFlags, cli.Uint64Flag{
		Name:  "index",
		Usage: "the commitment index",
	}),
	Action: commitmentPoint,
}

func commitmentPoint(ctx *cli.Context) error {
	manager, err := newKeyManager(ctx)
	if err != nil {
		return err
	}

	path, err := channelPath(ctx)
	if err != nil {
		return err
	}

	point, err := manager.CommitmentPoint(path, ctx.Uint64("index"))
	if err != nil {
		return err
	}

	return printJSON(struct {
		Index           uint64 `json:"index"`
		CommitmentPoint string `json:"commitment_point"`
	}{
		Index: ctx.Uint64("index"),
		CommitmentPoint: hex.EncodeToString(
			point.SerializeCompressed(),
		),
	})
}

func main() {
	app := cli.NewApp()
	app.Name = "chankeys"
	app.Version = "0.1.0"
	app.Usage = "derive channel keys from a master seed"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "network, n",
			Usage: "the network to derive keys for, one of: " +
				"mainnet, testnet, regtest, simnet",
			Value: "mainnet",
		},
		cli.StringFlag{
			Name: "seed_file",
			Usage: "path of a file holding the hex encoded " +
				"seed; if unset the seed is read from the " +
				"terminal without echo",
		},
	}
	app.Commands = []cli.Command{
		nodeIDCommand,
		channelKeysCommand,
		commitmentPointCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
