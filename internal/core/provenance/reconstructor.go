package provenance

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/darwayne/errutil"
	"github.com/hashbeam/settler/internal/core/chainmodels"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// prevTxCacheSize bounds the cache of referenced transactions; a
	// multi-input transaction often spends several outputs of the same
	// parent, so one fetch serves them all.
	prevTxCacheSize = 128

	resolveConcurrency = 4
)

type Gateway interface {
	GetRawTransaction(ctx context.Context, txid string) (*chainmodels.TxView, error)
	GetWalletTransaction(ctx context.Context, txid string) (*chainmodels.WalletTx, error)
	GetBlockHeight(ctx context.Context, blockHash string) (int64, error)
}

// Reconstructor recovers who paid whom, how much, and in which block,
// using nothing but the public fields of raw transactions: each input is
// dereferenced one hop to the previous output it spends, and the outputs
// are partitioned into counterparty payment and change by address
// equality.
type Reconstructor struct {
	gw     Gateway
	params *chaincfg.Params
	cache  *lru.Cache[string, *chainmodels.TxView]
	logger *zap.Logger
}

func New(gw Gateway, params *chaincfg.Params, logger *zap.Logger) (*Reconstructor, error) {
	cache, err := lru.New[string, *chainmodels.TxView](prevTxCacheSize)
	if err != nil {
		return nil, err
	}

	return &Reconstructor{gw: gw, params: params, cache: cache, logger: logger}, nil
}

// Reconstruct fetches txid and derives its provenance relative to
// counterparty. Failure to fetch the transaction itself, or missing
// confirmation metadata, is fatal. Failure to resolve a referenced
// previous output degrades softly: that input keeps an empty address and
// zero amount and the rest of the reconstruction proceeds.
func (r *Reconstructor) Reconstruct(ctx context.Context, txid string, counterparty btcutil.Address) (*Result, error) {
	tx, err := r.gw.GetRawTransaction(ctx, txid)
	if err != nil {
		return nil, errors.Wrap(err, "fetching transaction under reconstruction")
	}

	inputs := r.resolveInputs(ctx, tx)
	payment, change := r.classifyOutputs(tx, counterparty)

	wtx, err := r.gw.GetWalletTransaction(ctx, txid)
	if err != nil {
		return nil, errors.Wrap(err, "fetching wallet view")
	}
	if wtx.BlockHash == "" {
		return nil, errors.Errorf("transaction %s has no confirming block; it must be mined before reconstruction", txid)
	}

	height := wtx.BlockHeight
	if height == 0 {
		height, err = r.gw.GetBlockHeight(ctx, wtx.BlockHash)
		if err != nil {
			return nil, errors.Wrap(err, "resolving confirming block height")
		}
	}

	fee := wtx.AbsoluteFee()
	if fee == 0 {
		fee = recomputeFee(inputs, tx)
	}

	return &Result{
		TxID:          txid,
		Inputs:        inputs,
		PaymentAmount: payment,
		Change:        change,
		Fee:           fee,
		BlockHeight:   height,
		BlockHash:     wtx.BlockHash,
	}, nil
}

// resolveInputs walks the one-hop reference graph for every vin entry:
// fetch the referenced previous transaction, index into its vout, decode
// address and amount. Inputs resolve independently and concurrently;
// order of the returned slice matches vin order.
func (r *Reconstructor) resolveInputs(ctx context.Context, tx *chainmodels.TxView) []ResolvedInput {
	results := make([]ResolvedInput, len(tx.Vin))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(resolveConcurrency)
	for i, vin := range tx.Vin {
		i, vin := i, vin
		group.Go(func() error {
			results[i] = r.resolveInput(ctx, vin)
			return nil
		})
	}
	_ = group.Wait()

	var diag error
	for i, in := range results {
		if in.Err != nil {
			diag = multierr.Append(diag, errors.Wrapf(in.Err, "vin %d", i))
		}
	}
	if diag != nil {
		r.logger.Warn("input resolution degraded; recording empty owner and zero amount",
			zap.String("txid", tx.TxID), zap.Error(diag))
	}

	return results
}

func (r *Reconstructor) resolveInput(ctx context.Context, vin chainmodels.VinView) ResolvedInput {
	in := ResolvedInput{PrevTxID: vin.TxID, PrevIndex: vin.Vout}

	if vin.IsCoinBase() {
		in.Err = errors.New("coinbase input has no previous output")
		return in
	}

	prev, err := r.prevTx(ctx, vin.TxID)
	if err != nil {
		in.Err = err
		return in
	}

	if int(vin.Vout) >= len(prev.Vout) {
		in.Err = errutil.NewNotFound("referenced output index out of range")
		return in
	}

	out := prev.Vout[vin.Vout]
	if addr, ok := out.Address(r.params); ok {
		in.Address = addr.EncodeAddress()
	}
	in.Amount = out.Amount()

	return in
}

func (r *Reconstructor) prevTx(ctx context.Context, txid string) (*chainmodels.TxView, error) {
	if cached, ok := r.cache.Get(txid); ok {
		return cached, nil
	}

	tx, err := r.gw.GetRawTransaction(ctx, txid)
	if err != nil {
		return nil, errors.Wrap(err, "fetching referenced transaction")
	}
	r.cache.Add(txid, tx)

	return tx, nil
}

// classifyOutputs partitions vout entries by address equality against the
// counterparty: the matching output is the payment, and of the remaining
// decodable outputs the last one in vout order is kept as change. A
// standard two-output transfer has exactly one non-counterparty output;
// with more than one, only the last survives, which is logged.
func (r *Reconstructor) classifyOutputs(tx *chainmodels.TxView, counterparty btcutil.Address) (btcutil.Amount, *ChangeOutput) {
	target := counterparty.EncodeAddress()

	var payment btcutil.Amount
	var change *ChangeOutput
	var candidates int
	for _, out := range tx.Vout {
		addr, ok := out.Address(r.params)
		if !ok {
			// Non-standard script; excluded from classification.
			continue
		}

		if addr.EncodeAddress() == target {
			payment = out.Amount()
			continue
		}

		candidates++
		change = &ChangeOutput{Address: addr.EncodeAddress(), Amount: out.Amount()}
	}

	if candidates > 1 {
		r.logger.Warn("multiple change candidates; keeping the last in vout order",
			zap.String("txid", tx.TxID), zap.Int("candidates", candidates))
	}

	return payment, change
}

// recomputeFee falls back to fee = inputs - outputs when the wallet view
// reports none. Only trustworthy when every input resolved.
func recomputeFee(inputs []ResolvedInput, tx *chainmodels.TxView) btcutil.Amount {
	var in btcutil.Amount
	for _, input := range inputs {
		if input.Err != nil {
			return 0
		}
		in += input.Amount
	}

	var out btcutil.Amount
	for _, vout := range tx.Vout {
		out += vout.Amount()
	}

	if in < out {
		return 0
	}

	return in - out
}
