package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/holder-address-registry/api/clients"
	"github.com/ruteri/holder-address-registry/cmd/flags"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagPrimary = &cli.StringFlag{
	Name:     "primary",
	Required: true,
	Usage:    "wallet (EVM) address",
}
var flagSecondary = &cli.StringFlag{
	Name:     "secondary",
	Required: true,
	Usage:    "base58 address to register for the wallet",
}
var flagCredential = &cli.StringFlag{
	Name:    "credential",
	Usage:   "export credential",
	EnvVars: []string{"REGISTRY_EXPORT_CREDENTIAL"},
}
var flagOut = &cli.StringFlag{
	Name:  "out",
	Value: "addresses.csv",
	Usage: "file to write the export to, '-' for stdout",
}

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Talk to a holder address registry server",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "register a secondary address for a wallet",
				Flags: []cli.Flag{flagPrimary, flagSecondary},
				Action: func(cCtx *cli.Context) error {
					err := newClient(cCtx).Register(cCtx.Context, cCtx.String(flagPrimary.Name), cCtx.String(flagSecondary.Name))
					var conflict *interfaces.ConflictError
					if errors.As(err, &conflict) {
						return fmt.Errorf("wallet is already registered with %s", conflict.Existing)
					} else if err != nil {
						return err
					}
					fmt.Println("registered")
					return nil
				},
			},
			{
				Name:  "lookup",
				Usage: "print the secondary address registered for a wallet",
				Flags: []cli.Flag{flagPrimary},
				Action: func(cCtx *cli.Context) error {
					secondary, err := newClient(cCtx).Lookup(cCtx.Context, cCtx.String(flagPrimary.Name))
					if err != nil {
						return err
					}
					fmt.Println(secondary)
					return nil
				},
			},
			{
				Name:  "eligibility",
				Usage: "check whether a wallet holds a qualifying asset",
				Flags: []cli.Flag{flagPrimary},
				Action: func(cCtx *cli.Context) error {
					eligible, err := newClient(cCtx).Eligibility(cCtx.Context, cCtx.String(flagPrimary.Name))
					if err != nil {
						return err
					}
					fmt.Println(eligible)
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "download all registrations as CSV",
				Flags: []cli.Flag{flagCredential, flagOut},
				Action: func(cCtx *cli.Context) error {
					data, err := newClient(cCtx).Export(cCtx.Context, cCtx.String(flagCredential.Name))
					if err != nil {
						return err
					}
					if out := cCtx.String(flagOut.Name); out != "-" {
						return os.WriteFile(out, data, 0600)
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
			{
				Name:  "config",
				Usage: "print the server's chain and contract configuration",
				Action: func(cCtx *cli.Context) error {
					cfg, err := newClient(cCtx).Config(cCtx.Context)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) clients.RegistryProvider {
	return &clients.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
}
