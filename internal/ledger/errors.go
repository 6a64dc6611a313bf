package ledger

import (
	"fmt"

	"github.com/bookstore/ledger/internal/validate"
)

// Error kinds. All of them satisfy errors.Is(err, ErrInvalidInput).
var (
	ErrInvalidInput  = validate.ErrInvalidInput
	ErrNameInvalid   = validate.ErrNameInvalid
	ErrAmountInvalid = validate.ErrAmountInvalid
	ErrPriceInvalid  = validate.ErrPriceInvalid

	// ErrInsufficientStock is returned when a sale asks for more than is held
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", validate.ErrInvalidInput)
)
