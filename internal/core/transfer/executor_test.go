package transfer

import (
	"bytes"
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	sendErr error
	sent    btcutil.Amount
	sends   int
}

func (f *fakeGateway) SendToAddress(_ context.Context, _ btcutil.Address, amount btcutil.Amount) (*chainhash.Hash, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sends++
	f.sent = amount
	return new(chainhash.Hash), nil
}

func (f *fakeGateway) GetMempoolEntry(context.Context, string) (*btcjson.GetMempoolEntryResult, error) {
	return &btcjson.GetMempoolEntryResult{Height: 101}, nil
}

func regtestAddress(t *testing.T) btcutil.Address {
	t.Helper()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		bytes.Repeat([]byte{0x17}, 20), &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	return addr
}

func TestExecutor_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("broadcasts and returns txid", func(t *testing.T) {
		gw := &fakeGateway{}
		e := NewExecutor(gw, &chaincfg.RegressionNetParams, zap.NewNop())

		amount, err := btcutil.NewAmount(20)
		require.NoError(t, err)

		txid, err := e.Pay(ctx, regtestAddress(t), amount)
		require.NoError(t, err)
		require.NotNil(t, txid)
		require.Equal(t, amount, gw.sent)
	})

	t.Run("rejects wrong network address", func(t *testing.T) {
		gw := &fakeGateway{}
		e := NewExecutor(gw, &chaincfg.MainNetParams, zap.NewNop())

		_, err := e.Pay(ctx, regtestAddress(t), btcutil.Amount(1000))
		require.Error(t, err)
		require.Zero(t, gw.sends)
	})

	t.Run("surfaces node rejection verbatim", func(t *testing.T) {
		rejection := errors.New("Insufficient funds")
		gw := &fakeGateway{sendErr: rejection}
		e := NewExecutor(gw, &chaincfg.RegressionNetParams, zap.NewNop())

		_, err := e.Pay(ctx, regtestAddress(t), btcutil.Amount(1000))
		require.ErrorIs(t, err, rejection)
	})
}
