// erainspect decodes raw type 0x71 transaction buffers and transaction
// receipt JSON into their canonical structured form.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/era-l2/eratypes/core/types"
)

func main() {
	app := &cli.App{
		Name:  "erainspect",
		Usage: "inspect L2 transaction envelopes and receipts",
		Commands: []*cli.Command{
			{
				Name:      "tx",
				Usage:     "decode a raw broadcast transaction (hex string argument, or - for stdin)",
				ArgsUsage: "<hex>",
				Action:    decodeTx,
			},
			{
				Name:      "receipt",
				Usage:     "decode a transaction receipt (JSON file argument, or - for stdin)",
				ArgsUsage: "<file>",
				Action:    decodeReceipt,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func decodeTx(ctx *cli.Context) error {
	input, err := readArg(ctx)
	if err != nil {
		return err
	}
	raw, err := parseHexArg(strings.TrimSpace(string(input)))
	if err != nil {
		return err
	}
	tx, err := types.DecodeRawEip712Tx(raw)
	if err != nil {
		return err
	}
	return printJSON(tx)
}

func decodeReceipt(ctx *cli.Context) error {
	input, err := readArg(ctx)
	if err != nil {
		return err
	}
	receipt, err := types.DecodeReceipt(input)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func readArg(ctx *cli.Context) ([]byte, error) {
	arg := ctx.Args().First()
	if arg == "" {
		return nil, fmt.Errorf("missing argument, see --help")
	}
	if arg == "-" {
		return io.ReadAll(os.Stdin)
	}
	if ctx.Command.Name == "receipt" {
		return os.ReadFile(arg)
	}
	return []byte(arg), nil
}

func parseHexArg(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %v", err)
	}
	return raw, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
