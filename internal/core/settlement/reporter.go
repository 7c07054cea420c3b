package settlement

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reporter serializes records in a fixed positional layout: ten lines,
// newline separated, no header. Consumers must know the schema out of
// band. Pure formatting; sink errors are fatal.
type Reporter struct {
	logger *zap.Logger
}

func NewReporter(logger *zap.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Write emits the record to w. Line order: txid, input address, input
// amount, counterparty address, counterparty amount, change address
// (possibly empty), change amount, fee, block height, block hash.
func (r *Reporter) Write(w io.Writer, rec Record) error {
	lines := []string{
		rec.TxID,
		rec.InputAddress,
		FormatBTC(rec.InputAmount),
		rec.CounterpartyAddress,
		FormatBTC(rec.CounterpartyAmount),
		rec.ChangeAddress,
		FormatBTC(rec.ChangeAmount),
		FormatBTC(rec.Fee),
		strconv.FormatInt(rec.BlockHeight, 10),
		rec.BlockHash,
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.Wrap(err, "writing settlement record")
		}
	}

	return nil
}

// WriteFile writes the record to path, replacing any previous file.
func (r *Reporter) WriteFile(path string, rec Record) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}

	if err := r.Write(file, rec); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}

	r.logger.Info("settlement record written", zap.String("path", path))

	return nil
}
