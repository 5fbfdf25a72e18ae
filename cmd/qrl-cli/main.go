package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	qrlbridge "github.com/qrlwallet/go-bridge"
	"github.com/qrlwallet/go-bridge/config"
	"github.com/qrlwallet/go-bridge/device"
	"github.com/qrlwallet/go-bridge/device/wsbridge"
	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/explorer/qrlapi"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentSyncs = 4

var (
	Version string

	cfg         *config.Config
	registry    *qrlbridge.Registry
	explorerSvc explorer.Explorer
	devices     device.Provider
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "QRL bridge CLI"
	app.Usage = "discover, sync and spend QRL accounts held on a hardware device"
	app.Commands = append(
		app.Commands,
		&scanCommand,
		&syncCommand,
		&feeCommand,
		&sendCommand,
		&versionCommand,
	)
	app.Flags = []cli.Flag{configFlag, explorerFlag, deviceBridgeFlag, verboseFlag}
	app.Before = func(ctx *cli.Context) error {
		if ctx.Args().First() == "version" {
			return nil
		}
		if err := setup(ctx); err != nil {
			return fmt.Errorf("error initializing qrl bridge: %v", err)
		}
		return nil
	}
	app.After = func(*cli.Context) error {
		if closer, ok := devices.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "optional config file, values are overridden by QRLBRIDGE_* env vars",
	}
	explorerFlag = &cli.StringFlag{
		Name:  "explorer",
		Usage: "the url of the QRL node API, overrides the config",
	}
	deviceBridgeFlag = &cli.StringFlag{
		Name:  "device-bridge",
		Usage: "the ws url of the hardware device bridge, overrides the config",
	}
	verboseFlag = &cli.BoolFlag{
		Name:        "verbose",
		Usage:       "enable debug logs",
		Value:       false,
		DefaultText: "false",
	}
	deviceFlag = &cli.StringFlag{
		Name:     "device",
		Usage:    "id of the device as known by the device bridge",
		Required: true,
	}
	accountsFlag = &cli.StringFlag{
		Name:     "accounts",
		Usage:    "JSON file holding the accounts",
		Required: true,
	}
	accountFlag = &cli.StringFlag{
		Name:     "account",
		Usage:    "id of the account to spend from",
		Required: true,
	}
	toFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "recipient address",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "amount to send in QRL",
		Required: true,
	}
	feeFlag = &cli.StringFlag{
		Name:  "fee",
		Usage: "fee in QRL, defaults to the node estimate",
	}
	otsIndexFlag = &cli.StringFlag{
		Name:  "ots-index",
		Usage: "one time signature index to sign with",
	}
)

var (
	scanCommand = cli.Command{
		Name:  "scan",
		Usage: "Discover the accounts held on a device and store them",
		Flags: []cli.Flag{deviceFlag, accountsFlag},
		Action: func(ctx *cli.Context) error {
			return scan(ctx)
		},
	}
	syncCommand = cli.Command{
		Name:  "sync",
		Usage: "Synchronize the stored accounts with the chain",
		Flags: []cli.Flag{accountsFlag},
		Action: func(ctx *cli.Context) error {
			return syncAccounts(ctx)
		},
	}
	feeCommand = cli.Command{
		Name:  "fee",
		Usage: "Shows the fee estimated by the node",
		Action: func(ctx *cli.Context) error {
			return fee(ctx)
		},
	}
	sendCommand = cli.Command{
		Name:  "send",
		Usage: "Sign a transfer on the device and broadcast it",
		Flags: []cli.Flag{deviceFlag, accountsFlag, accountFlag, toFlag, amountFlag, feeFlag, otsIndexFlag},
		Action: func(ctx *cli.Context) error {
			return send(ctx)
		},
	}
	versionCommand = cli.Command{
		Name:  "version",
		Usage: "Display version information",
		Action: func(ctx *cli.Context) error {
			fmt.Printf("QRL bridge CLI version: %s\n", Version)
			return nil
		},
	}
)

func setup(ctx *cli.Context) error {
	if url := ctx.String(explorerFlag.Name); url != "" {
		os.Setenv("QRLBRIDGE_"+config.ExplorerUrlKey, url) // nolint
	}
	if url := ctx.String(deviceBridgeFlag.Name); url != "" {
		os.Setenv("QRLBRIDGE_"+config.DeviceBridgeUrlKey, url) // nolint
	}

	var err error
	cfg, err = config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	log.SetLevel(cfg.LogLevel)
	if ctx.Bool(verboseFlag.Name) {
		log.SetLevel(log.DebugLevel)
	}

	explorerSvc, err = qrlapi.NewExplorer(
		cfg.ExplorerUrl,
		qrlapi.WithTimeout(cfg.RequestTimeout),
		qrlapi.WithCircuitBreaker(cfg.CircuitBreaker),
		qrlapi.WithRateLimit(cfg.RateLimit),
		qrlapi.WithRetries(cfg.MaxRetries),
	)
	if err != nil {
		return err
	}

	devices = device.ProviderFunc(func(string) (device.Device, error) {
		return nil, fmt.Errorf("no device bridge configured, set %s", config.DeviceBridgeUrlKey)
	})
	if cfg.DeviceBridgeUrl != "" {
		devices, err = wsbridge.NewProvider(cfg.DeviceBridgeUrl)
		if err != nil {
			return err
		}
	}

	bridge, err := qrlbridge.NewBridge(explorerSvc, devices, qrlbridge.WithScanLimit(cfg.ScanLimit))
	if err != nil {
		return err
	}
	registry, err = qrlbridge.NewRegistry(bridge)
	return err
}

func scan(ctx *cli.Context) error {
	bridge, err := registry.ForCurrency(cfg.Currency)
	if err != nil {
		return err
	}

	events, cancel := bridge.ScanAccountsOnDevice(ctx.Context, cfg.Currency, ctx.String(deviceFlag.Name))
	defer cancel()

	accounts := make([]types.Account, 0)
	for ev := range events {
		if ev.Err != nil {
			return ev.Err
		}
		log.Infof("found account %s (%s)", ev.Account.Name, ev.Account.FreshAddress)
		accounts = append(accounts, *ev.Account)
	}

	if err := writeAccounts(ctx.String(accountsFlag.Name), accounts); err != nil {
		return err
	}
	return printJSON(accounts)
}

func syncAccounts(ctx *cli.Context) error {
	path := ctx.String(accountsFlag.Name)
	accounts, err := readAccounts(path)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx.Context)
	g.SetLimit(maxConcurrentSyncs)
	for i := range accounts {
		i := i
		g.Go(func() error {
			synced, err := syncAccount(gctx, accounts[i])
			if err != nil {
				return fmt.Errorf("failed to sync account %s: %w", accounts[i].ID, err)
			}
			accounts[i] = synced
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writeAccounts(path, accounts); err != nil {
		return err
	}
	return printJSON(accounts)
}

func syncAccount(ctx context.Context, account types.Account) (types.Account, error) {
	bridge, err := registry.ForAccount(account)
	if err != nil {
		return account, err
	}

	events, cancel := bridge.Sync(ctx, account)
	defer cancel()

	for ev := range events {
		if ev.Err != nil {
			return account, ev.Err
		}
		account = ev.Patch(account)
	}
	return account, ctx.Err()
}

func fee(ctx *cli.Context) error {
	raw, err := explorerSvc.GetEstimatedNetworkFee(ctx.Context)
	if err != nil {
		return err
	}
	shor, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"fee_shor": shor.String(),
		"fee":      toUnit(shor).String(),
	})
}

func send(ctx *cli.Context) error {
	path := ctx.String(accountsFlag.Name)
	accounts, err := readAccounts(path)
	if err != nil {
		return err
	}

	index := -1
	for i, a := range accounts {
		if a.ID == ctx.String(accountFlag.Name) {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("account %s not found", ctx.String(accountFlag.Name))
	}
	account := accounts[index]

	bridge, err := registry.ForAccount(account)
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(ctx.String(amountFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid amount: %s", err)
	}

	tx := bridge.CreateTransaction(account)
	tx = bridge.EditTransactionRecipient(account, tx, ctx.String(toFlag.Name))
	tx = bridge.EditTransactionAmount(account, tx, fromUnit(amount))

	extras := make(map[string]any)
	if v := ctx.String(feeFlag.Name); v != "" {
		feeAmount, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid fee: %s", err)
		}
		extras[qrlbridge.ExtraFee] = fromUnit(feeAmount)
	}
	if v := ctx.String(otsIndexFlag.Name); v != "" {
		extras[qrlbridge.ExtraOTSIndex] = v
	}
	if tx, err = bridge.ApplyTransactionExtras(account, tx, extras); err != nil {
		return err
	}

	events, cancel := bridge.SignAndBroadcast(ctx.Context, account, tx, ctx.String(deviceFlag.Name))
	defer cancel()

	var op *types.Operation
	for ev := range events {
		if ev.Err != nil {
			return ev.Err
		}
		switch ev.Type {
		case types.TxSigned:
			log.Info("transfer signed, broadcasting")
		case types.TxBroadcasted:
			op = ev.Operation
		}
	}
	if op == nil {
		return fmt.Errorf("transfer cancelled")
	}

	accounts[index] = bridge.AddPendingOperation(account, *op)
	if err := writeAccounts(path, accounts); err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"txid": op.Hash,
	})
}

func toUnit(shor decimal.Decimal) decimal.Decimal {
	return shor.Shift(-cfg.Currency.Units[0].Magnitude)
}

func fromUnit(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(cfg.Currency.Units[0].Magnitude)
}

func readAccounts(path string) ([]types.Account, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	accounts := make([]types.Account, 0)
	if err := json.Unmarshal(buf, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}

func writeAccounts(path string, accounts []types.Account) error {
	buf, err := json.MarshalIndent(accounts, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o600)
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
