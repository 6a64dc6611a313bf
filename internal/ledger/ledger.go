// Package ledger is the in-memory stock and revenue store. A single mutex
// guards every operation so each call is one atomic transition.
package ledger

import (
	"math"
	"sort"
	"sync"

	"github.com/bookstore/ledger/internal/validate"
	"github.com/shopspring/decimal"
)

// Entry is the (name, amount) pair applied by a mutation.
type Entry struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// Receipt describes one applied mutation. Seq orders every transition the
// ledger has applied; Revenue is the rounded total right after it.
type Receipt struct {
	Entry
	Seq     uint64
	Revenue decimal.Decimal
}

// Stock is one item's current quantity.
type Stock struct {
	Name     string
	Quantity int64
}

// Ledger tracks item quantities and the running revenue total.
type Ledger struct {
	mu      sync.Mutex
	stock   map[string]int64
	revenue decimal.Decimal
	seq     uint64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		stock:   make(map[string]int64),
		revenue: decimal.Zero,
	}
}

// AddStock increments the quantity held for name, creating the entry if needed.
func (l *Ledger) AddStock(name string, amount int64) (Receipt, error) {
	if !validate.Name(name) {
		return Receipt{}, ErrNameInvalid
	}
	if err := validate.Amount(amount); err != nil {
		return Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.stock[name]
	if amount > math.MaxInt64-current {
		return Receipt{}, ErrAmountInvalid
	}
	l.stock[name] = current + amount

	return l.receipt(name, amount), nil
}

// GetStock returns the quantity held for name. An unknown name holds 0.
func (l *Ledger) GetStock(name string) (int64, error) {
	if !validate.Name(name) {
		return 0, ErrNameInvalid
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.stock[name], nil
}

// GetAllStock returns every item with a positive quantity, sorted by name.
func (l *Ledger) GetAllStock() []Stock {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Stock, 0, len(l.stock))
	for name, qty := range l.stock {
		if qty > 0 {
			out = append(out, Stock{Name: name, Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Sell deducts amount from name's stock. When price is set the proceeds,
// price times amount, are added to revenue. A sale that would lift revenue
// above validate.MaxPrice fails with ErrPriceInvalid.
func (l *Ledger) Sell(name string, amount int64, price decimal.NullDecimal) (Receipt, error) {
	if !validate.Name(name) {
		return Receipt{}, ErrNameInvalid
	}
	if err := validate.Amount(amount); err != nil {
		return Receipt{}, err
	}
	if err := validate.Price(price); err != nil {
		return Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stock[name] < amount {
		return Receipt{}, ErrInsufficientStock
	}
	revenue := l.revenue
	if price.Valid {
		revenue = revenue.Add(price.Decimal.Mul(decimal.NewFromInt(amount)))
		if revenue.GreaterThan(validate.MaxPrice) {
			return Receipt{}, ErrPriceInvalid
		}
	}
	l.stock[name] -= amount
	l.revenue = revenue

	return l.receipt(name, amount), nil
}

// GetRevenue returns total proceeds since the last reset, rounded to cents.
func (l *Ledger) GetRevenue() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.revenue.Round(2)
}

// ResetAll drops every stock entry and zeroes revenue.
func (l *Ledger) ResetAll() Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stock = make(map[string]int64)
	l.revenue = decimal.Zero

	return l.receipt("", 0)
}

// receipt must be called with mu held.
func (l *Ledger) receipt(name string, amount int64) Receipt {
	l.seq++
	return Receipt{
		Entry:   Entry{Name: name, Amount: amount},
		Seq:     l.seq,
		Revenue: l.revenue.Round(2),
	}
}
