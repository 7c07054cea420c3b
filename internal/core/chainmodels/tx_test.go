package chainmodels

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func regtestAddr(t *testing.T, fill byte) string {
	t.Helper()
	a, err := btcutil.NewAddressWitnessPubKeyHash(
		bytes.Repeat([]byte{fill}, 20), &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	return a.EncodeAddress()
}

func TestVoutView_Address(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	encoded := regtestAddr(t, 0x01)

	t.Run("singular field", func(t *testing.T) {
		v := VoutView{ScriptPubKey: ScriptPubKeyView{Address: encoded}}
		addr, ok := v.Address(params)
		require.True(t, ok)
		require.Equal(t, encoded, addr.EncodeAddress())
	})

	t.Run("legacy plural field", func(t *testing.T) {
		v := VoutView{ScriptPubKey: ScriptPubKeyView{Addresses: []string{encoded}}}
		addr, ok := v.Address(params)
		require.True(t, ok)
		require.Equal(t, encoded, addr.EncodeAddress())
	})

	t.Run("absent address", func(t *testing.T) {
		v := VoutView{ScriptPubKey: ScriptPubKeyView{Type: "nulldata"}}
		_, ok := v.Address(params)
		require.False(t, ok)
	})

	t.Run("malformed address", func(t *testing.T) {
		v := VoutView{ScriptPubKey: ScriptPubKeyView{Address: "not-an-address"}}
		_, ok := v.Address(params)
		require.False(t, ok)
	})

	t.Run("wrong network address", func(t *testing.T) {
		v := VoutView{ScriptPubKey: ScriptPubKeyView{Address: encoded}}
		_, ok := v.Address(&chaincfg.MainNetParams)
		require.False(t, ok)
	})
}

func TestVoutView_Amount(t *testing.T) {
	require.Equal(t, btcutil.Amount(2999980000), VoutView{Value: 29.9998}.Amount())
	require.Equal(t, btcutil.Amount(50*btcutil.SatoshiPerBitcoin), VoutView{Value: 50}.Amount())
	require.Zero(t, VoutView{}.Amount())
}

func TestWalletTx_AbsoluteFee(t *testing.T) {
	require.Equal(t, btcutil.Amount(15000), WalletTx{Fee: -0.00015}.AbsoluteFee())
	require.Equal(t, btcutil.Amount(15000), WalletTx{Fee: 0.00015}.AbsoluteFee())
	require.Zero(t, WalletTx{}.AbsoluteFee())
}

func TestTxView_Decode(t *testing.T) {
	raw := `{
		"txid": "a1b2",
		"vin": [{"txid": "prev", "vout": 1}],
		"vout": [{"value": 20.0, "n": 0, "scriptPubKey": {"type": "witness_v0_keyhash", "address": "bcrt1q"}}],
		"blockhash": "beef",
		"confirmations": 1
	}`

	var view TxView
	require.NoError(t, json.Unmarshal([]byte(raw), &view))
	require.Equal(t, "a1b2", view.TxID)
	require.Len(t, view.Vin, 1)
	require.Equal(t, uint32(1), view.Vin[0].Vout)
	require.False(t, view.Vin[0].IsCoinBase())
	require.Len(t, view.Vout, 1)
	require.Equal(t, "beef", view.BlockHash)
}

func TestVinView_IsCoinBase(t *testing.T) {
	require.True(t, VinView{Coinbase: "04ffff001d"}.IsCoinBase())
	require.False(t, VinView{TxID: "prev"}.IsCoinBase())
}
