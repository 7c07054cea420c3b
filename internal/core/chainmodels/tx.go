package chainmodels

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
)

// TxView is the decoded form of a verbose getrawtransaction response,
// limited to the fields the settlement workflow reads.
type TxView struct {
	TxID          string     `json:"txid"`
	Hash          string     `json:"hash"`
	Vin           []VinView  `json:"vin"`
	Vout          []VoutView `json:"vout"`
	BlockHash     string     `json:"blockhash"`
	Confirmations uint64     `json:"confirmations"`
}

// VinView references the previous transaction output being spent. It
// carries no address or amount itself; those live on the referenced
// output.
type VinView struct {
	Coinbase string `json:"coinbase"`
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
}

func (v VinView) IsCoinBase() bool {
	return len(v.Coinbase) > 0
}

type VoutView struct {
	Value        float64          `json:"value"`
	N            uint32           `json:"n"`
	ScriptPubKey ScriptPubKeyView `json:"scriptPubKey"`
}

// ScriptPubKeyView keeps both the modern singular address field and the
// legacy plural one; nodes differ on which they populate.
type ScriptPubKeyView struct {
	Type      string   `json:"type"`
	Address   string   `json:"address"`
	Addresses []string `json:"addresses"`
}

// Address returns the output's address validated against params, or false
// when the script has no decodable address (e.g. nulldata outputs).
func (v VoutView) Address(params *chaincfg.Params) (btcutil.Address, bool) {
	raw := v.ScriptPubKey.Address
	if raw == "" && len(v.ScriptPubKey.Addresses) > 0 {
		raw = v.ScriptPubKey.Addresses[0]
	}
	if raw == "" {
		return nil, false
	}

	addr, err := btcutil.DecodeAddress(raw, params)
	if err != nil || !addr.IsForNet(params) {
		return nil, false
	}

	return addr, true
}

// Amount converts the node's floating point BTC value to satoshis.
func (v VoutView) Amount() btcutil.Amount {
	sats := decimal.NewFromFloat(v.Value).Mul(
		decimal.NewFromInt(btcutil.SatoshiPerBitcoin)).IntPart()
	return btcutil.Amount(sats)
}

// WalletTx is the decoded form of a wallet-scoped gettransaction
// response. Fee is reported from the wallet's perspective and is usually
// negative for an outgoing payment.
type WalletTx struct {
	TxID          string  `json:"txid"`
	Fee           float64 `json:"fee"`
	Confirmations int64   `json:"confirmations"`
	BlockHash     string  `json:"blockhash"`
	BlockHeight   int64   `json:"blockheight"`
}

// AbsoluteFee normalizes the signed wallet fee to satoshis.
func (t WalletTx) AbsoluteFee() btcutil.Amount {
	sats := decimal.NewFromFloat(t.Fee).Abs().Mul(
		decimal.NewFromInt(btcutil.SatoshiPerBitcoin)).IntPart()
	return btcutil.Amount(sats)
}
