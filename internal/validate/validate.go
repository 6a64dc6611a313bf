// Package validate holds the checks every ledger mutation passes through
// before any state is touched. Nothing here keeps mutable state.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultAmount is used when a request omits the amount field.
const DefaultAmount int64 = 1

const nameRule = "required,alpha,max=8"

// MaxPriceScale is the most fractional digits a price may carry.
const MaxPriceScale = 18

// maxPriceExponent keeps prices inside the float64 range before any
// comparison rescales the coefficient.
const maxPriceExponent = 308

// MaxPrice is the largest accepted price and the ceiling of the revenue total.
var MaxPrice = decimal.NewFromFloat(math.MaxFloat64)

var (
	// ErrInvalidInput is the single error kind exposed at the boundary
	ErrInvalidInput = errors.New("invalid input")

	// ErrNameInvalid is returned for names that are not 1-8 ASCII letters
	ErrNameInvalid = fmt.Errorf("%w: name must be 1-8 ASCII letters", ErrInvalidInput)

	// ErrAmountInvalid is returned for amounts that are not positive integers
	ErrAmountInvalid = fmt.Errorf("%w: amount must be a positive integer", ErrInvalidInput)

	// ErrPriceInvalid is returned for prices that are not positive numbers
	ErrPriceInvalid = fmt.Errorf("%w: price must be a positive number", ErrInvalidInput)
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Name reports whether name is 1 to 8 ASCII letters.
func Name(name string) bool {
	return v.Var(name, nameRule) == nil
}

// Amount checks an already-typed amount.
func Amount(amount int64) error {
	if amount <= 0 {
		return ErrAmountInvalid
	}
	return nil
}

// Price checks an optional price. An absent price is always valid. A present
// price must be positive and no larger than MaxPrice, with at most
// MaxPriceScale fractional digits.
func Price(price decimal.NullDecimal) error {
	if !price.Valid {
		return nil
	}
	d := price.Decimal
	if !d.IsPositive() {
		return ErrPriceInvalid
	}
	if exp := d.Exponent(); exp < -MaxPriceScale || exp > maxPriceExponent {
		return ErrPriceInvalid
	}
	if d.GreaterThan(MaxPrice) {
		return ErrPriceInvalid
	}
	return nil
}

// ParseName extracts a name from a raw JSON field. Missing fields and
// non-string values fail the same way a malformed name does.
func ParseName(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrNameInvalid
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", ErrNameInvalid
	}
	if !Name(name) {
		return "", ErrNameInvalid
	}
	return name, nil
}

// ParseAmount resolves the amount field. An absent field yields
// DefaultAmount; null, booleans, strings and non-integral numbers are
// rejected.
func ParseAmount(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return DefaultAmount, nil
	}
	amount, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, ErrAmountInvalid
	}
	if err := Amount(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// ParsePrice resolves the optional price field. Absent and null both mean
// "no price".
func ParsePrice(raw json.RawMessage) (decimal.NullDecimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}, nil
	}
	if !isNumber(raw) {
		return decimal.NullDecimal{}, ErrPriceInvalid
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.NullDecimal{}, ErrPriceInvalid
	}
	price := decimal.NewNullDecimal(d)
	if err := Price(price); err != nil {
		return decimal.NullDecimal{}, err
	}
	return price, nil
}

// isNumber reports whether a syntactically valid JSON value is a number
// literal rather than a string, bool, object or array.
func isNumber(raw []byte) bool {
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}
