package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bookstore/ledger/internal/db"
	"github.com/bookstore/ledger/internal/ledger"
	"github.com/bookstore/ledger/internal/repo"
	"github.com/bookstore/ledger/internal/validate"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// ErrMalformedBody is returned when a request body is not a single JSON object
var ErrMalformedBody = fmt.Errorf("%w: request body must be a JSON object", ledger.ErrInvalidInput)

type apiHandler func(w http.ResponseWriter, r *http.Request) error

// handle turns handler errors into the fixed error body
func (s *Server) handle(operation string, h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		switch {
		case errors.Is(err, ledger.ErrInvalidInput):
			reason := reasonOf(err)
			s.metrics.Rejected(operation, reason)
			s.log.Info("Request rejected",
				zap.String("operation", operation),
				zap.String("reason", reason),
				zap.Error(err),
			)
			writeError(w, http.StatusBadRequest)
		case errors.Is(err, repo.ErrJournalDisabled):
			writeError(w, http.StatusServiceUnavailable)
		default:
			s.log.Error("Request failed", zap.String("operation", operation), zap.Error(err))
			writeError(w, http.StatusInternalServerError)
		}
	}
}

func (s *Server) addStock(w http.ResponseWriter, r *http.Request) error {
	fields, err := decodeFields(r)
	if err != nil {
		return err
	}
	name, err := validate.ParseName(fields["name"])
	if err != nil {
		return err
	}
	amount, err := validate.ParseAmount(fields["amount"])
	if err != nil {
		return err
	}

	receipt, err := s.ledger.AddStock(name, amount)
	if err != nil {
		return err
	}
	entry := receipt.Entry

	s.metrics.StockAdded(entry.Amount)
	ctx := context.WithoutCancel(r.Context())
	if s.journal != nil {
		if _, err := s.journal.RecordStockAdded(ctx, receipt.Seq, entry.Name, entry.Amount); err != nil {
			s.journalFailed(db.KindStockAdded, err)
		}
	}
	s.publish(ctx, db.KindStockAdded, func(ctx context.Context) error {
		return s.publisher.PublishStockAdded(ctx, entry.Name, entry.Amount)
	})

	return writeJSON(w, http.StatusOK, entry)
}

func (s *Server) getAllStock(w http.ResponseWriter, r *http.Request) error {
	stock := s.ledger.GetAllStock()

	out := make(map[string]int64, len(stock))
	for _, item := range stock {
		out[item.Name] = item.Quantity
	}

	return writeJSON(w, http.StatusOK, out)
}

func (s *Server) getStock(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	qty, err := s.ledger.GetStock(name)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, map[string]int64{name: qty})
}

func (s *Server) sell(w http.ResponseWriter, r *http.Request) error {
	fields, err := decodeFields(r)
	if err != nil {
		return err
	}
	name, err := validate.ParseName(fields["name"])
	if err != nil {
		return err
	}
	amount, err := validate.ParseAmount(fields["amount"])
	if err != nil {
		return err
	}
	price, err := validate.ParsePrice(fields["price"])
	if err != nil {
		return err
	}

	receipt, err := s.ledger.Sell(name, amount, price)
	if err != nil {
		return err
	}
	entry := receipt.Entry

	s.metrics.SaleRecorded(entry.Amount, receipt.Revenue.InexactFloat64())
	ctx := context.WithoutCancel(r.Context())
	if s.journal != nil {
		if _, err := s.journal.RecordSale(ctx, receipt.Seq, entry.Name, entry.Amount, price); err != nil {
			s.journalFailed(db.KindSaleRecorded, err)
		}
	}
	s.publish(ctx, db.KindSaleRecorded, func(ctx context.Context) error {
		return s.publisher.PublishSaleRecorded(ctx, entry.Name, entry.Amount, price)
	})

	return writeJSON(w, http.StatusOK, entry)
}

type revenueResponse struct {
	Sales float64 `json:"sales"`
}

func (s *Server) getRevenue(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, revenueResponse{Sales: s.ledger.GetRevenue().InexactFloat64()})
}

func (s *Server) resetAll(w http.ResponseWriter, r *http.Request) error {
	receipt := s.ledger.ResetAll()

	s.metrics.Reset()
	ctx := context.WithoutCancel(r.Context())
	if s.journal != nil {
		if _, err := s.journal.RecordReset(ctx, receipt.Seq); err != nil {
			s.journalFailed(db.KindLedgerReset, err)
		}
	}
	s.publish(ctx, db.KindLedgerReset, func(ctx context.Context) error {
		return s.publisher.PublishLedgerReset(ctx)
	})

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) recentJournal(w http.ResponseWriter, r *http.Request) error {
	if s.journal == nil {
		return repo.ErrJournalDisabled
	}

	entries, err := s.journal.Recent(r.Context(), repo.MaxRecent)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []db.JournalEntry{}
	}

	return writeJSON(w, http.StatusOK, entries)
}

// decodeFields reads the body as one JSON object, keeping each field raw so
// the validators can tell absent, null and mistyped values apart.
func decodeFields(r *http.Request) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if dec.More() {
		return nil, ErrMalformedBody
	}

	return fields, nil
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNameInvalid):
		return "name_invalid"
	case errors.Is(err, ledger.ErrAmountInvalid):
		return "amount_invalid"
	case errors.Is(err, ledger.ErrPriceInvalid):
		return "price_invalid"
	case errors.Is(err, ledger.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrMalformedBody):
		return "malformed_body"
	default:
		return "invalid_input"
	}
}
