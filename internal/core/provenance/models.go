package provenance

import "github.com/btcsuite/btcd/btcutil"

// ResolvedInput is a vin entry after dereferencing the previous output it
// spends. Address is empty and Amount zero when resolution failed; Err
// then carries the diagnostic. A soft failure here never fails the whole
// reconstruction.
type ResolvedInput struct {
	PrevTxID  string
	PrevIndex uint32
	Address   string
	Amount    btcutil.Amount
	Err       error
}

func (in ResolvedInput) Resolved() bool {
	return in.Err == nil
}

// ChangeOutput is the non-counterparty output kept by classification.
type ChangeOutput struct {
	Address string
	Amount  btcutil.Amount
}

// Result aggregates everything reconstructed for one transaction. It is
// immutable once returned.
type Result struct {
	TxID string

	// Inputs holds one entry per vin, in vin order.
	Inputs []ResolvedInput

	// PaymentAmount is the value of the output paying the counterparty.
	PaymentAmount btcutil.Amount

	// Change is nil when no non-counterparty output decoded.
	Change *ChangeOutput

	Fee         btcutil.Amount
	BlockHeight int64
	BlockHash   string
}

// FirstInput returns the resolved form of the first vin entry, the one a
// single-input transfer spends from.
func (r *Result) FirstInput() ResolvedInput {
	if len(r.Inputs) == 0 {
		return ResolvedInput{}
	}

	return r.Inputs[0]
}
