package settlement

import (
	"context"
	"database/sql"

	"github.com/darwayne/errutil"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS settlements (
	txid                 TEXT PRIMARY KEY,
	input_address        TEXT NOT NULL,
	input_sats           INTEGER NOT NULL,
	counterparty_address TEXT NOT NULL,
	counterparty_sats    INTEGER NOT NULL,
	change_address       TEXT NOT NULL,
	change_sats          INTEGER NOT NULL,
	fee_sats             INTEGER NOT NULL,
	block_height         INTEGER NOT NULL,
	block_hash           TEXT NOT NULL,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store archives finished settlement records in sqlite, keyed by txid.
// Purely additive; records are never updated or deleted.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening archive db %s", path)
	}

	return NewStore(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "initializing settlements schema")
}

func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (
			txid, input_address, input_sats,
			counterparty_address, counterparty_sats,
			change_address, change_sats,
			fee_sats, block_height, block_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TxID, rec.InputAddress, int64(rec.InputAmount),
		rec.CounterpartyAddress, int64(rec.CounterpartyAmount),
		rec.ChangeAddress, int64(rec.ChangeAmount),
		int64(rec.Fee), rec.BlockHeight, rec.BlockHash,
	)

	return errors.Wrapf(err, "archiving settlement %s", rec.TxID)
}

func (s *Store) ByTxID(ctx context.Context, txid string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT txid, input_address, input_sats,
			counterparty_address, counterparty_sats,
			change_address, change_sats,
			fee_sats, block_height, block_hash
		FROM settlements WHERE txid = ? LIMIT 1`, txid)

	var rec Record
	err := row.Scan(
		&rec.TxID, &rec.InputAddress, &rec.InputAmount,
		&rec.CounterpartyAddress, &rec.CounterpartyAmount,
		&rec.ChangeAddress, &rec.ChangeAmount,
		&rec.Fee, &rec.BlockHeight, &rec.BlockHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errutil.NewNotFound("settlement not found")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading settlement %s", txid)
	}

	return &rec, nil
}
