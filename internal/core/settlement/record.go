package settlement

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/hashbeam/settler/internal/core/provenance"
	"github.com/shopspring/decimal"
)

// Record is the denormalized settlement summary reconstructed from the
// ledger. Built once at the end of a run and never mutated.
type Record struct {
	TxID                string
	InputAddress        string
	InputAmount         btcutil.Amount
	CounterpartyAddress string
	CounterpartyAmount  btcutil.Amount
	ChangeAddress       string
	ChangeAmount        btcutil.Amount
	Fee                 btcutil.Amount
	BlockHeight         int64
	BlockHash           string
}

// FromProvenance flattens a reconstruction result into a record. The
// input fields come from the first vin entry, the one a single-input
// transfer spends from; an unresolved input leaves them empty/zero.
func FromProvenance(res *provenance.Result, counterparty btcutil.Address) Record {
	rec := Record{
		TxID:                res.TxID,
		CounterpartyAddress: counterparty.EncodeAddress(),
		CounterpartyAmount:  res.PaymentAmount,
		Fee:                 res.Fee,
		BlockHeight:         res.BlockHeight,
		BlockHash:           res.BlockHash,
	}

	in := res.FirstInput()
	rec.InputAddress = in.Address
	rec.InputAmount = in.Amount

	if res.Change != nil {
		rec.ChangeAddress = res.Change.Address
		rec.ChangeAmount = res.Change.Amount
	}

	return rec
}

// FormatBTC renders an amount as a plain BTC decimal with no trailing
// zeros, so 20 BTC is "20" and 15000 sats is "0.00015".
func FormatBTC(a btcutil.Amount) string {
	s := decimal.New(int64(a), -8).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}

	return s
}
