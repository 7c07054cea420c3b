package transfer

import (
	"context"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Gateway interface {
	SendToAddress(ctx context.Context, addr btcutil.Address, amount btcutil.Amount) (*chainhash.Hash, error)
	GetMempoolEntry(ctx context.Context, txid string) (*btcjson.GetMempoolEntryResult, error)
}

// Executor issues a single-recipient payment from the wallet its gateway
// is scoped to. Node rejections (insufficient funds included) surface
// verbatim and abort the run.
type Executor struct {
	gw     Gateway
	params *chaincfg.Params
	logger *zap.Logger
}

func NewExecutor(gw Gateway, params *chaincfg.Params, logger *zap.Logger) *Executor {
	return &Executor{gw: gw, params: params, logger: logger}
}

// Pay broadcasts a standard payment of amount to addr and returns the
// resulting txid. The recipient address must belong to the configured
// network; addresses from other networks are rejected before any RPC.
func (e *Executor) Pay(ctx context.Context, addr btcutil.Address, amount btcutil.Amount) (*chainhash.Hash, error) {
	if !addr.IsForNet(e.params) {
		return nil, errors.Errorf("address %s is not valid for network %s",
			addr.EncodeAddress(), e.params.Name)
	}

	txid, err := e.gw.SendToAddress(ctx, addr, amount)
	if err != nil {
		return nil, err
	}

	e.logger.Info("payment broadcast",
		zap.String("txid", txid.String()),
		zap.String("to", addr.EncodeAddress()),
		zap.String("amount", amount.String()))

	// The entry is informational; the transfer is already committed to
	// the mempool if the send succeeded.
	entry, err := e.gw.GetMempoolEntry(ctx, txid.String())
	if err != nil {
		e.logger.Warn("mempool entry lookup failed", zap.Error(err))
	} else {
		e.logger.Info("transaction in mempool",
			zap.String("txid", txid.String()),
			zap.Int64("height", entry.Height))
	}

	return txid, nil
}
