package ledger

import (
	"math"
	"sync"
	"testing"

	"github.com/bookstore/ledger/internal/validate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestAddAndSell(t *testing.T) {
	l := New()

	added, err := l.AddStock("apple", 10)
	require.NoError(t, err)
	assert.Equal(t, Entry{Name: "apple", Amount: 10}, added.Entry)

	qty, err := l.GetStock("apple")
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty)

	sold, err := l.Sell("apple", 3, price("2.5"))
	require.NoError(t, err)
	assert.Equal(t, Entry{Name: "apple", Amount: 3}, sold.Entry)
	assert.Equal(t, "7.50", sold.Revenue.StringFixed(2))

	qty, _ = l.GetStock("apple")
	assert.Equal(t, int64(7), qty)
	assert.True(t, l.GetRevenue().Equal(decimal.RequireFromString("7.5")))
}

func TestOversellLeavesStockUnchanged(t *testing.T) {
	l := New()
	_, err := l.AddStock("apple", 7)
	require.NoError(t, err)

	_, err = l.Sell("apple", 100, decimal.NullDecimal{})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, ErrInvalidInput)

	qty, _ := l.GetStock("apple")
	assert.Equal(t, int64(7), qty)
	assert.True(t, l.GetRevenue().IsZero())
}

func TestSellUnknownItem(t *testing.T) {
	l := New()

	_, err := l.Sell("ghost", 1, price("1"))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, l.GetAllStock())
}

func TestAddStockRejectsBadInput(t *testing.T) {
	l := New()

	_, err := l.AddStock("ab3", 1)
	assert.ErrorIs(t, err, ErrNameInvalid)

	_, err = l.AddStock("y", 0)
	assert.ErrorIs(t, err, ErrAmountInvalid)

	_, err = l.AddStock("y", -3)
	assert.ErrorIs(t, err, ErrAmountInvalid)

	assert.Empty(t, l.GetAllStock())
	qty, err := l.GetStock("y")
	require.NoError(t, err)
	assert.Zero(t, qty)
}

func TestAddStockOverflow(t *testing.T) {
	l := New()
	_, err := l.AddStock("big", math.MaxInt64)
	require.NoError(t, err)

	_, err = l.AddStock("big", 1)
	assert.ErrorIs(t, err, ErrAmountInvalid)

	qty, _ := l.GetStock("big")
	assert.Equal(t, int64(math.MaxInt64), qty)
}

func TestAddStockIsCumulative(t *testing.T) {
	l := New()
	_, _ = l.AddStock("pear", 4)
	_, _ = l.AddStock("pear", 6)

	qty, _ := l.GetStock("pear")
	assert.Equal(t, int64(10), qty)
}

func TestSellRejectsBadInput(t *testing.T) {
	l := New()
	_, _ = l.AddStock("apple", 5)

	tests := []struct {
		name   string
		item   string
		amount int64
		price  decimal.NullDecimal
		want   error
	}{
		{"bad name", "app1e", 1, decimal.NullDecimal{}, ErrNameInvalid},
		{"zero amount", "apple", 0, decimal.NullDecimal{}, ErrAmountInvalid},
		{"zero price", "apple", 1, price("0"), ErrPriceInvalid},
		{"negative price", "apple", 1, price("-1"), ErrPriceInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Sell(tt.item, tt.amount, tt.price)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	qty, _ := l.GetStock("apple")
	assert.Equal(t, int64(5), qty)
	assert.True(t, l.GetRevenue().IsZero())
}

func TestUnpricedSaleKeepsRevenue(t *testing.T) {
	l := New()
	_, _ = l.AddStock("apple", 5)
	_, _ = l.Sell("apple", 1, price("1.25"))
	_, err := l.Sell("apple", 2, decimal.NullDecimal{})
	require.NoError(t, err)

	assert.Equal(t, "1.25", l.GetRevenue().StringFixed(2))
}

func TestRevenueRounding(t *testing.T) {
	l := New()
	_, _ = l.AddStock("a", 10)
	_, _ = l.Sell("a", 3, price("0.333"))

	assert.Equal(t, "1.00", l.GetRevenue().StringFixed(2))
	assert.True(t, l.GetRevenue().Equal(decimal.RequireFromString("1")))
}

func TestGetStockInvalidName(t *testing.T) {
	l := New()
	_, err := l.GetStock("toolongname")
	assert.ErrorIs(t, err, ErrNameInvalid)
}

func TestGetAllStockSortedAndPositive(t *testing.T) {
	l := New()
	_, _ = l.AddStock("pear", 2)
	_, _ = l.AddStock("Apple", 1)
	_, _ = l.AddStock("banana", 3)
	_, _ = l.AddStock("kiwi", 1)
	_, _ = l.Sell("kiwi", 1, decimal.NullDecimal{})

	assert.Equal(t, []Stock{
		{Name: "Apple", Quantity: 1},
		{Name: "banana", Quantity: 3},
		{Name: "pear", Quantity: 2},
	}, l.GetAllStock())

	qty, err := l.GetStock("kiwi")
	require.NoError(t, err)
	assert.Zero(t, qty)
}

func TestResetAll(t *testing.T) {
	l := New()
	_, _ = l.AddStock("apple", 10)
	_, _ = l.Sell("apple", 3, price("2.5"))

	l.ResetAll()
	r := l.ResetAll()
	assert.True(t, r.Revenue.IsZero())

	qty, err := l.GetStock("apple")
	require.NoError(t, err)
	assert.Zero(t, qty)
	assert.Empty(t, l.GetAllStock())
	assert.Equal(t, "0.00", l.GetRevenue().StringFixed(2))
}

func TestConcurrentSellsNeverOversell(t *testing.T) {
	l := New()
	_, _ = l.AddStock("apple", 100)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Sell("apple", 1, price("1")); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	qty, _ := l.GetStock("apple")
	assert.Equal(t, 100, sold)
	assert.Zero(t, qty)
	assert.True(t, l.GetRevenue().Equal(decimal.NewFromInt(100)))
}

func TestSellRejectsRevenueOverflow(t *testing.T) {
	l := New()
	_, _ = l.AddStock("gold", 10)

	_, err := l.Sell("gold", 1, decimal.NewNullDecimal(validate.MaxPrice))
	require.NoError(t, err)

	_, err = l.Sell("gold", 1, price("1e300"))
	assert.ErrorIs(t, err, ErrPriceInvalid)

	_, err = l.Sell("gold", 2, price("1e308"))
	assert.ErrorIs(t, err, ErrPriceInvalid)

	qty, _ := l.GetStock("gold")
	assert.Equal(t, int64(9), qty)
	assert.True(t, l.GetRevenue().Equal(validate.MaxPrice))
	assert.False(t, math.IsInf(l.GetRevenue().InexactFloat64(), 0))
}

func TestSellRejectsHugeProceeds(t *testing.T) {
	l := New()
	_, _ = l.AddStock("gold", math.MaxInt64)

	_, err := l.Sell("gold", math.MaxInt64, price("1e300"))
	assert.ErrorIs(t, err, ErrPriceInvalid)

	qty, _ := l.GetStock("gold")
	assert.Equal(t, int64(math.MaxInt64), qty)
	assert.True(t, l.GetRevenue().IsZero())
}

func TestSellRejectsUnboundedScale(t *testing.T) {
	l := New()
	_, _ = l.AddStock("apple", 2)

	_, err := l.Sell("apple", 1, price("1e-20000000"))
	assert.ErrorIs(t, err, ErrPriceInvalid)

	_, err = l.Sell("apple", 1, price("0.000000000000000001"))
	require.NoError(t, err)
	assert.Equal(t, "0.00", l.GetRevenue().StringFixed(2))
}

func TestReceiptSequence(t *testing.T) {
	l := New()

	a, err := l.AddStock("apple", 2)
	require.NoError(t, err)
	s, err := l.Sell("apple", 1, price("1.5"))
	require.NoError(t, err)

	_, err = l.Sell("apple", 5, decimal.NullDecimal{})
	require.Error(t, err)

	r := l.ResetAll()

	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), s.Seq)
	assert.Equal(t, uint64(3), r.Seq)
	assert.Equal(t, "1.50", s.Revenue.StringFixed(2))
}

func TestConcurrentReceiptsAreUnique(t *testing.T) {
	l := New()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var r Receipt
			if i%10 == 0 {
				r = l.ResetAll()
			} else {
				r, _ = l.AddStock("pear", 1)
			}
			mu.Lock()
			seen[r.Seq] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, seen, 100)
	for seq := uint64(1); seq <= 100; seq++ {
		assert.True(t, seen[seq], seq)
	}
}
