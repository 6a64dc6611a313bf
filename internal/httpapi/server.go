package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bookstore/ledger/internal/db"
	"github.com/bookstore/ledger/internal/ledger"
	"github.com/bookstore/ledger/internal/metrics"
	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Store is the ledger surface the adapter drives.
type Store interface {
	AddStock(name string, amount int64) (ledger.Receipt, error)
	GetStock(name string) (int64, error)
	GetAllStock() []ledger.Stock
	Sell(name string, amount int64, price decimal.NullDecimal) (ledger.Receipt, error)
	GetRevenue() decimal.Decimal
	ResetAll() ledger.Receipt
}

// Publisher emits ledger events.
type Publisher interface {
	PublishStockAdded(ctx context.Context, name string, amount int64) error
	PublishSaleRecorded(ctx context.Context, name string, amount int64, price decimal.NullDecimal) error
	PublishLedgerReset(ctx context.Context) error
}

// Journal records applied transitions.
type Journal interface {
	RecordStockAdded(ctx context.Context, seq uint64, name string, amount int64) (string, error)
	RecordSale(ctx context.Context, seq uint64, name string, amount int64, price decimal.NullDecimal) (string, error)
	RecordReset(ctx context.Context, seq uint64) (string, error)
	Recent(ctx context.Context, limit int) ([]db.JournalEntry, error)
}

// Prober reports whether the service dependencies are healthy.
type Prober interface {
	Probe() error
}

// Options wires optional collaborators. Nil fields are skipped.
type Options struct {
	Publisher Publisher
	Journal   Journal
	Health    Prober
	Metrics   *metrics.Metrics
}

// Server maps HTTP requests onto ledger operations
type Server struct {
	ledger    Store
	publisher Publisher
	journal   Journal
	health    Prober
	metrics   *metrics.Metrics
	log       *zap.Logger

	pending sync.WaitGroup
}

// NewServer creates the HTTP adapter around a ledger
func NewServer(store Store, log *zap.Logger, opts Options) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		ledger:    store,
		publisher: opts.Publisher,
		journal:   opts.Journal,
		health:    opts.Health,
		metrics:   m,
		log:       log,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(s.instrument)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/stocks", s.handle("add_stock", s.addStock))
		r.Get("/stocks", s.handle("get_all_stock", s.getAllStock))
		r.Get("/stocks/{name}", s.handle("get_stock", s.getStock))
		r.Delete("/stocks", s.handle("reset_all", s.resetAll))

		r.Post("/sales", s.handle("sell", s.sell))
		r.Get("/sales", s.handle("get_revenue", s.getRevenue))

		r.Get("/journal", s.handle("journal", s.recentJournal))
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", readyz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// Wait blocks until in-flight event publishes finish
func (s *Server) Wait() {
	s.pending.Wait()
}

// instrument logs and measures every request
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		s.metrics.ObserveRequest(r.Method, route, status, elapsed)
		s.log.Info("HTTP request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

// publish runs fn in the background so a broker outage never fails a request
func (s *Server) publish(reqCtx context.Context, eventType string, fn func(ctx context.Context) error) {
	if s.publisher == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), publishTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.log.Error("Failed to publish event",
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}()
}

func (s *Server) journalFailed(kind string, err error) {
	s.log.Warn("Failed to record journal entry", zap.String("kind", kind), zap.Error(err))
}

func readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Probe(); err != nil {
			s.log.Error("Health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy: " + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("healthy"))
}
