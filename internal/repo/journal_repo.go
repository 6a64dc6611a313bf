package repo

import (
	"context"
	"errors"

	"github.com/bookstore/ledger/internal/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxRecent caps how many entries Recent returns
const MaxRecent = 100

// ErrJournalDisabled is returned when no journal store was configured
var ErrJournalDisabled = errors.New("journal disabled")

// JournalRepository records applied ledger transitions
type JournalRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(database *db.DB, logger *zap.Logger) *JournalRepository {
	return &JournalRepository{
		db:  database,
		log: logger,
	}
}

// RecordStockAdded appends a stock.added entry and returns its event ID
func (r *JournalRepository) RecordStockAdded(ctx context.Context, seq uint64, name string, amount int64) (string, error) {
	return r.record(ctx, &db.JournalEntry{Kind: db.KindStockAdded, Seq: seq, Name: name, Amount: amount})
}

// RecordSale appends a sale.recorded entry and returns its event ID
func (r *JournalRepository) RecordSale(ctx context.Context, seq uint64, name string, amount int64, price decimal.NullDecimal) (string, error) {
	entry := &db.JournalEntry{Kind: db.KindSaleRecorded, Seq: seq, Name: name, Amount: amount}
	if price.Valid {
		s := price.Decimal.String()
		entry.Price = &s
	}
	return r.record(ctx, entry)
}

// RecordReset appends a ledger.reset entry and returns its event ID
func (r *JournalRepository) RecordReset(ctx context.Context, seq uint64) (string, error) {
	return r.record(ctx, &db.JournalEntry{Kind: db.KindLedgerReset, Seq: seq})
}

func (r *JournalRepository) record(ctx context.Context, entry *db.JournalEntry) (string, error) {
	if r == nil || r.db == nil {
		return "", ErrJournalDisabled
	}
	entry.EventID = uuid.New().String()

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Error("Failed to record journal entry",
			zap.String("kind", entry.Kind),
			zap.Uint64("seq", entry.Seq),
			zap.String("name", entry.Name),
			zap.Error(err),
		)
		return "", err
	}

	r.log.Debug("Journal entry recorded",
		zap.String("event_id", entry.EventID),
		zap.String("kind", entry.Kind),
	)
	return entry.EventID, nil
}

// Recent returns up to limit entries, most recently written first. Entries
// of concurrent requests may land out of ledger order; Seq gives the order
// the ledger applied them.
func (r *JournalRepository) Recent(ctx context.Context, limit int) ([]db.JournalEntry, error) {
	if r == nil || r.db == nil {
		return nil, ErrJournalDisabled
	}
	if limit < 1 || limit > MaxRecent {
		limit = MaxRecent
	}

	var entries []db.JournalEntry
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		r.log.Error("Failed to list journal entries", zap.Error(err))
		return nil, err
	}

	return entries, nil
}

// Ping checks the underlying store
func (r *JournalRepository) Ping() error {
	if r == nil || r.db == nil {
		return ErrJournalDisabled
	}
	return r.db.Ping()
}
