package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/holder-address-registry/api"
	"github.com/ruteri/holder-address-registry/archive"
	"github.com/ruteri/holder-address-registry/cmd/flags"
	"github.com/ruteri/holder-address-registry/credential"
	"github.com/ruteri/holder-address-registry/export"
	"github.com/ruteri/holder-address-registry/httpserver"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/ruteri/holder-address-registry/ownership"
	"github.com/ruteri/holder-address-registry/registration"
	"github.com/ruteri/holder-address-registry/storage"
	"github.com/ruteri/holder-address-registry/validator"
	"github.com/urfave/cli/v2"
)

var (
	flagStore = &cli.StringFlag{
		Name:    "store",
		Value:   "file://./addresses.csv",
		Usage:   "registration store URI (memory://, file://, sqlite://, postgres://, redis://)",
		EnvVars: []string{"REGISTRY_STORE"},
	}
	flagAssetContracts = &cli.StringSliceFlag{
		Name: "asset-contracts",
		Value: cli.NewStringSlice(
			"0xc0aD5B5bAbe71C7b1664A4B301673333ecaAF582",
			"0xf7F88D2a9497c974Cd5f132a3dB6A9ab82df78Cd",
		),
		Usage:   "ERC-721 contracts whose holders may register",
		EnvVars: []string{"REGISTRY_ASSET_CONTRACTS"},
	}
	flagChainIDs = &cli.Uint64SliceFlag{
		Name:    "chain-ids",
		Value:   cli.NewUint64Slice(1, 3, 4, 5, 42),
		Usage:   "chain IDs the wallet-connection UI accepts",
		EnvVars: []string{"REGISTRY_CHAIN_IDS"},
	}
	flagValidationMode = &cli.StringFlag{
		Name:    "validation-mode",
		Value:   validator.ModeOnCurve.String(),
		Usage:   "secondary address validation: 'length' or 'on-curve'",
		EnvVars: []string{"REGISTRY_VALIDATION_MODE"},
	}
	flagExportCredential = &cli.StringFlag{
		Name:    "export-credential",
		Usage:   "export secret: literal, env:NAME, file:/path or vault://host:port/mount/path#field; export is disabled when empty",
		EnvVars: []string{"REGISTRY_EXPORT_CREDENTIAL"},
	}
	flagExportArchive = &cli.StringSliceFlag{
		Name:    "export-archive",
		Usage:   "archive each export to these URIs (file://, s3://, ipfs://)",
		EnvVars: []string{"REGISTRY_EXPORT_ARCHIVE"},
	}
	flagRequireOwnership = &cli.BoolFlag{
		Name:    "require-ownership",
		Value:   false,
		Usage:   "re-check asset ownership on every registration (requires --rpc-addr)",
		EnvVars: []string{"REGISTRY_REQUIRE_OWNERSHIP"},
	}
	flagOwnershipTimeout = &cli.DurationFlag{
		Name:    "ownership-timeout",
		Value:   10 * time.Second,
		Usage:   "timeout of each balanceOf call",
		EnvVars: []string{"REGISTRY_OWNERSHIP_TIMEOUT"},
	}
)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the holder address registry API",
		Flags: append([]cli.Flag{
			flags.RpcAddrFlag,
			flagStore,
			flagAssetContracts,
			flagChainIDs,
			flagValidationMode,
			flagExportCredential,
			flagExportArchive,
			flagRequireOwnership,
			flagOwnershipTimeout,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := cCtx.Context

	mode, err := validator.ParseMode(cCtx.String(flagValidationMode.Name))
	if err != nil {
		return err
	}

	contracts, err := ownership.ParseContracts(cCtx.StringSlice(flagAssetContracts.Name))
	if err != nil {
		return err
	}
	chainIDs := cCtx.Uint64Slice(flagChainIDs.Name)

	// Ownership gate
	var gate *ownership.Gate
	if rpcAddress := cCtx.String(flags.RpcAddrFlag.Name); rpcAddress != "" {
		logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
		ethClient, err := ethclient.DialContext(ctx, rpcAddress)
		if err != nil {
			logger.Error("Failed to dial RPC", "err", err)
			return err
		}
		defer ethClient.Close()

		chainID, err := ethClient.ChainID(ctx)
		if err != nil {
			logger.Warn("Could not read chain ID from RPC", "err", err)
		} else if !chainID.IsUint64() || !slices.Contains(chainIDs, chainID.Uint64()) {
			logger.Warn("RPC chain is not in the supported list", "chainId", chainID, "supported", chainIDs)
		}

		gate = ownership.NewGate(ethClient, contracts, cCtx.Duration(flagOwnershipTimeout.Name), logger)
	}

	requireOwnership := cCtx.Bool(flagRequireOwnership.Name)
	if requireOwnership && gate == nil {
		return fmt.Errorf("--%s requires --%s", flagRequireOwnership.Name, flags.RpcAddrFlag.Name)
	}

	// Store
	store, err := storage.NewStoreFactory(logger).StoreFor(ctx, cCtx.String(flagStore.Name))
	if err != nil {
		logger.Error("Failed to open registration store", "err", err)
		return err
	}
	defer store.Close()
	if !store.Available(ctx) {
		logger.Warn("Registration store is not reachable yet", "store", store.LocationURI())
	}
	logger.Info("Using registration store", "store", store.LocationURI())

	// Export
	var exportCredential string
	if ref := cCtx.String(flagExportCredential.Name); ref != "" {
		exportCredential, err = credential.Resolve(ctx, ref)
		if err != nil {
			logger.Error("Failed to resolve export credential", "err", err)
			return err
		}
	} else {
		logger.Warn("No export credential configured, export is disabled")
	}

	var archiver interfaces.Archiver
	if uris := cCtx.StringSlice(flagExportArchive.Name); len(uris) > 0 {
		archiver, err = archive.NewArchiverFactory(logger).CreateMultiArchiver(uris)
		if err != nil {
			logger.Error("Failed to configure export archive", "err", err)
			return err
		}
	}

	// Services
	var regGate, eligibilityGate interfaces.OwnershipChecker
	if gate != nil {
		eligibilityGate = gate
		if requireOwnership {
			regGate = gate
		}
	}
	registrations := registration.NewService(validator.New(mode), store, regGate, logger)
	exports := export.NewService(exportCredential, store, archiver, logger)

	contractHexes := make([]string, len(contracts))
	for i, c := range contracts {
		contractHexes[i] = c.Hex()
	}
	handler := httpserver.NewHandler(registrations, exports, eligibilityGate, api.ConfigResponse{
		SupportedChainIDs: chainIDs,
		AssetContracts:    contractHexes,
		ValidationMode:    mode.String(),
		OwnershipEnforced: requireOwnership,
	}, logger)

	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	// Wait for termination signal
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}
