package db

import (
	"time"

	"gorm.io/gorm"
)

// Journal entry kinds
const (
	KindStockAdded   = "stock.added"
	KindSaleRecorded = "sale.recorded"
	KindLedgerReset  = "ledger.reset"
)

// JournalEntry is one applied ledger transition
type JournalEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	Seq       uint64    `gorm:"not null;default:0;index:idx_journal_seq" json:"seq"` // ledger transition order within one process run
	Kind      string    `gorm:"type:varchar(32);not null;index:idx_journal_kind" json:"kind"`
	Name      string    `gorm:"type:varchar(8)" json:"name,omitempty"`
	Amount    int64     `gorm:"not null;default:0" json:"amount,omitempty"`
	Price     *string   `gorm:"type:varchar(64)" json:"price,omitempty"` // decimal string, nil for unpriced
	CreatedAt time.Time `gorm:"not null;index:idx_journal_created_at" json:"created_at"`
}

// TableName specifies the table name for JournalEntry model
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// BeforeCreate hook to set the timestamp
func (e *JournalEntry) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
