package repo

import (
	"context"
	"testing"

	"github.com/bookstore/ledger/internal/db"
	"github.com/bookstore/ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *db.DB {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	database := &db.DB{DB: gormDB}
	require.NoError(t, db.RunMigrations(database))

	return database
}

func TestRecordAndRecent(t *testing.T) {
	database := setupTestDB(t)
	log := logger.NewLogger("test", "info")
	repo := NewJournalRepository(database, log)

	ctx := context.Background()

	addID, err := repo.RecordStockAdded(ctx, 1, "apple", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, addID)

	saleID, err := repo.RecordSale(ctx, 2, "apple", 3, decimal.NewNullDecimal(decimal.RequireFromString("2.5")))
	require.NoError(t, err)
	assert.NotEqual(t, addID, saleID)

	_, err = repo.RecordSale(ctx, 3, "apple", 1, decimal.NullDecimal{})
	require.NoError(t, err)

	_, err = repo.RecordReset(ctx, 4)
	require.NoError(t, err)

	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, db.KindLedgerReset, entries[0].Kind)
	assert.Equal(t, uint64(4), entries[0].Seq)

	assert.Equal(t, db.KindSaleRecorded, entries[1].Kind)
	assert.Nil(t, entries[1].Price)

	assert.Equal(t, db.KindSaleRecorded, entries[2].Kind)
	assert.Equal(t, saleID, entries[2].EventID)
	require.NotNil(t, entries[2].Price)
	assert.Equal(t, "2.5", *entries[2].Price)

	assert.Equal(t, db.KindStockAdded, entries[3].Kind)
	assert.Equal(t, "apple", entries[3].Name)
	assert.Equal(t, int64(10), entries[3].Amount)
	assert.Equal(t, uint64(1), entries[3].Seq)
	assert.False(t, entries[3].CreatedAt.IsZero())
}

func TestRecentLimit(t *testing.T) {
	database := setupTestDB(t)
	repo := NewJournalRepository(database, logger.NewLogger("test", "info"))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.RecordStockAdded(ctx, uint64(i+1), "pear", int64(i+1))
		require.NoError(t, err)
	}

	entries, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].Amount)
	assert.Equal(t, int64(4), entries[1].Amount)

	entries, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestNilRepositoryIsDisabled(t *testing.T) {
	var repo *JournalRepository

	_, err := repo.RecordReset(context.Background(), 1)
	assert.ErrorIs(t, err, ErrJournalDisabled)

	_, err = repo.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrJournalDisabled)

	assert.ErrorIs(t, repo.Ping(), ErrJournalDisabled)
}
