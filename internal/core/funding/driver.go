package funding

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Gateway interface {
	GenerateToAddress(ctx context.Context, numBlocks int64, addr btcutil.Address) ([]*chainhash.Hash, error)
	GetBlockCount(ctx context.Context) (int64, error)
	GetBalance(ctx context.Context) (btcutil.Amount, error)
}

// Driver mines blocks with rewards credited to a wallet address. Mining
// always advances the chain; calls are not idempotent and the caller owns
// the bookkeeping of how often to mine.
type Driver struct {
	gw       Gateway
	maturity int64
	logger   *zap.Logger
}

// NewDriver builds a funding driver. maturity is the number of
// confirmations a block reward needs before it is spendable.
func NewDriver(gw Gateway, maturity int64, logger *zap.Logger) *Driver {
	return &Driver{gw: gw, maturity: maturity, logger: logger}
}

// Mine mines numBlocks to addr and returns the new tip height along with
// the mined block hashes.
func (d *Driver) Mine(ctx context.Context, addr btcutil.Address, numBlocks int64) (int64, []*chainhash.Hash, error) {
	hashes, err := d.gw.GenerateToAddress(ctx, numBlocks, addr)
	if err != nil {
		return 0, nil, err
	}

	tip, err := d.gw.GetBlockCount(ctx)
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading tip height")
	}

	d.logger.Info("mined blocks",
		zap.Int64("count", numBlocks),
		zap.Int64("tip", tip),
		zap.String("address", addr.EncodeAddress()))

	return tip, hashes, nil
}

// MatureFunds mines maturity+1 blocks so the reward of the first mined
// block becomes spendable, then reports the resulting wallet balance.
func (d *Driver) MatureFunds(ctx context.Context, addr btcutil.Address) (int64, btcutil.Amount, error) {
	tip, _, err := d.Mine(ctx, addr, d.maturity+1)
	if err != nil {
		return 0, 0, err
	}

	balance, err := d.gw.GetBalance(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading balance after maturing")
	}
	if balance == 0 {
		return 0, 0, errors.New("no spendable balance after maturing rewards")
	}

	d.logger.Info("rewards matured",
		zap.Int64("tip", tip),
		zap.String("balance", balance.String()))

	return tip, balance, nil
}
