package main

import (
	"context"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hashbeam/settler/internal/core/funding"
	"github.com/hashbeam/settler/internal/core/noderest"
	"github.com/hashbeam/settler/internal/core/noderpc"
	"github.com/hashbeam/settler/internal/core/provenance"
	"github.com/hashbeam/settler/internal/core/settlement"
	"github.com/hashbeam/settler/internal/core/transfer"
	"github.com/hashbeam/settler/internal/core/wallet"
	"github.com/hashbeam/settler/pkg/sigutil"
	"github.com/hashbeam/settler/pkg/txwatch"
)

type config struct {
	RPCHost      string  `long:"rpc-host" env:"SETTLER_RPC_HOST" description:"node RPC host:port" default:"127.0.0.1:18443"`
	RPCUser      string  `long:"rpc-user" env:"SETTLER_RPC_USER" description:"node RPC username" default:"alice"`
	RPCPass      string  `long:"rpc-pass" env:"SETTLER_RPC_PASS" description:"node RPC password" default:"password"`
	Network      string  `long:"network" env:"SETTLER_NETWORK" description:"chain network" default:"regtest" choice:"mainnet" choice:"testnet3" choice:"regtest" choice:"signet" choice:"simnet"`
	MinerWallet  string  `long:"miner-wallet" env:"SETTLER_MINER_WALLET" description:"wallet funded by mining" default:"Miner"`
	TraderWallet string  `long:"trader-wallet" env:"SETTLER_TRADER_WALLET" description:"wallet receiving the transfer" default:"Trader"`
	Amount       float64 `long:"amount" env:"SETTLER_AMOUNT" description:"transfer amount in BTC" default:"20"`
	Maturity     *int64  `long:"coinbase-maturity" env:"SETTLER_COINBASE_MATURITY" description:"confirmations before rewards spend (default: network rule)"`
	Out          string  `long:"out" env:"SETTLER_OUT" description:"settlement record path" default:"out.txt"`
	ArchiveDB    string  `long:"archive-db" env:"SETTLER_ARCHIVE_DB" description:"optional sqlite archive of settlement records"`
	ZMQAddr      string  `long:"zmq-addr" env:"SETTLER_ZMQ_ADDR" description:"optional zmq hashtx endpoint for broadcast confirmation"`
	RestURL      string  `long:"rest-url" env:"SETTLER_REST_URL" description:"optional bitcoind REST base url for cross-checks"`
}

func main() {
	cfg := config{}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	ctx, cancel := sigutil.Context(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("settlement run failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	params, err := networkParams(cfg.Network)
	if err != nil {
		return err
	}

	maturity, err := resolveMaturity(params, cfg.Maturity)
	if err != nil {
		return err
	}

	node, err := noderpc.New(noderpc.Config{
		Host:   cfg.RPCHost,
		User:   cfg.RPCUser,
		Pass:   cfg.RPCPass,
		Params: params,
	}, logger)
	if err != nil {
		return errors.Wrap(err, "building node client")
	}
	defer node.Shutdown()

	info, err := node.GetBlockChainInfo(ctx)
	if err != nil {
		return err
	}
	logger.Info("connected to node",
		zap.String("chain", info.Chain),
		zap.Int32("blocks", info.Blocks))

	if cfg.RestURL != "" {
		rest := noderest.NewRest(cfg.RestURL, logger)
		if chainInfo, err := rest.ChainInfo(ctx); err != nil {
			logger.Warn("rest probe failed", zap.Error(err))
		} else {
			logger.Info("rest probe ok", zap.String("chain", chainInfo.Chain))
		}
	}

	// Provision both wallets before touching balances.
	provisioner := wallet.NewProvisioner(node, logger)
	for _, name := range []string{cfg.MinerWallet, cfg.TraderWallet} {
		status, err := provisioner.Ensure(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "ensuring wallet %q", name)
		}
		logger.Info("wallet ready", zap.String("name", name), zap.Stringer("status", status))
	}

	miner, err := node.ForWallet(cfg.MinerWallet)
	if err != nil {
		return err
	}
	defer miner.Shutdown()
	trader, err := node.ForWallet(cfg.TraderWallet)
	if err != nil {
		return err
	}
	defer trader.Shutdown()

	// Fund the miner: mine enough blocks that the first reward matures.
	minerAddr, err := miner.NewAddress(ctx)
	if err != nil {
		return err
	}

	driver := funding.NewDriver(miner, maturity, logger)
	tip, balance, err := driver.MatureFunds(ctx, minerAddr)
	if err != nil {
		return err
	}
	logger.Info("miner funded",
		zap.Int64("tip", tip),
		zap.String("balance", balance.String()))

	// Transfer to a fresh trader address.
	traderAddr, err := trader.NewAddress(ctx)
	if err != nil {
		return err
	}
	amount, err := btcutil.NewAmount(cfg.Amount)
	if err != nil {
		return errors.Wrapf(err, "bad amount %v", cfg.Amount)
	}

	// Subscribe before broadcasting: the announcement fires once at
	// mempool acceptance and is not replayed for late subscribers.
	var watch *txwatch.Subscription
	if cfg.ZMQAddr != "" {
		watch, err = txwatch.New(cfg.ZMQAddr, logger).Subscribe(ctx)
		if err != nil {
			logger.Warn("zmq subscribe failed; relying on mempool check", zap.Error(err))
		} else {
			defer watch.Close()
		}
	}

	executor := transfer.NewExecutor(miner, params, logger)
	txid, err := executor.Pay(ctx, traderAddr, amount)
	if err != nil {
		return err
	}

	if watch != nil {
		watchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := watch.WaitForTx(watchCtx, *txid); err != nil {
			logger.Warn("zmq announcement not observed; relying on mempool check",
				zap.Error(err))
		}
		cancel()
	}

	// One more block confirms the transfer.
	if _, _, err := driver.Mine(ctx, minerAddr, 1); err != nil {
		return errors.Wrap(err, "mining confirmation block")
	}

	traderBalance, err := trader.GetBalance(ctx)
	if err != nil {
		return err
	}
	logger.Info("transfer confirmed", zap.String("trader_balance", traderBalance.String()))

	// Reconstruct provenance from the ledger alone.
	reconstructor, err := provenance.New(miner, params, logger)
	if err != nil {
		return err
	}
	result, err := reconstructor.Reconstruct(ctx, txid.String(), traderAddr)
	if err != nil {
		return err
	}

	record := settlement.FromProvenance(result, traderAddr)
	reporter := settlement.NewReporter(logger)
	if err := reporter.WriteFile(cfg.Out, record); err != nil {
		return err
	}

	if cfg.ArchiveDB != "" {
		store, err := settlement.OpenStore(cfg.ArchiveDB)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(ctx); err != nil {
			return err
		}
		if err := store.Save(ctx, record); err != nil {
			return err
		}
		logger.Info("settlement archived", zap.String("db", cfg.ArchiveDB))
	}

	if cfg.RestURL != "" {
		rest := noderest.NewRest(cfg.RestURL, logger)
		if err := rest.CrossCheck(ctx, record.TxID, record.BlockHash); err != nil {
			logger.Warn("rest cross-check failed", zap.Error(err))
		}
	}

	return nil
}

// resolveMaturity prefers an explicit override, falling back to the
// network's coinbase maturity rule.
func resolveMaturity(params *chaincfg.Params, override *int64) (int64, error) {
	if override == nil {
		return int64(params.CoinbaseMaturity), nil
	}
	if *override < 0 {
		return 0, errors.Errorf("coinbase maturity must not be negative, got %d", *override)
	}

	return *override, nil
}

func networkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, errors.Errorf("unknown network %q", name)
	}
}
