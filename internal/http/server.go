// Package http serves the JSON ledger API.
package http

import (
	"context"
	"net/http"
	"time"

	"moneycal/internal/log"
	"moneycal/internal/services"
)

// Services bundles everything the handlers need.
type Services struct {
	Transactions  *services.TransactionService
	FixedExpenses *services.FixedExpenseService
	Savings       *services.SavingsService
	Summary       *services.SummaryService
	Categories    *services.CategoryService
}

type Server struct {
	httpServer *http.Server
	svc        Services
	logger     *log.Logger
	limiter    *rateLimiter
}

// New builds the server with its full middleware chain and route table.
func New(addr string, svc Services, logger *log.Logger, rateLimitPerMinute int) *Server {
	s := &Server{
		svc:     svc,
		logger:  logger.WithComponent("http"),
		limiter: newRateLimiter(rateLimitPerMinute),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	handler = s.rateLimitMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = s.traceMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/transactions", s.handleTransactionList)
	mux.HandleFunc("POST /api/transactions", s.handleTransactionCreate)
	mux.HandleFunc("GET /api/transactions/export", s.handleTransactionExport)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleTransactionGet)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleTransactionPatch)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleTransactionPatch)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleTransactionDelete)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/categories", s.handleCategoriesInUse)

	mux.HandleFunc("GET /api/settings/categories", s.handleSettingsCategoriesGet)
	mux.HandleFunc("PUT /api/settings/categories", s.handleSettingsCategoriesPut)

	mux.HandleFunc("GET /api/fixed-expenses", s.handleFixedExpenseList)
	mux.HandleFunc("POST /api/fixed-expenses", s.handleFixedExpenseCreate)
	mux.HandleFunc("PATCH /api/fixed-expenses/{id}", s.handleFixedExpensePatch)
	mux.HandleFunc("DELETE /api/fixed-expenses/{id}", s.handleFixedExpenseDelete)

	mux.HandleFunc("GET /api/savings", s.handleSavingList)
	mux.HandleFunc("POST /api/savings", s.handleSavingCreate)
	mux.HandleFunc("GET /api/savings/forecast", s.handleSavingsForecast)
	mux.HandleFunc("PATCH /api/savings/{id}", s.handleSavingPatch)
	mux.HandleFunc("DELETE /api/savings/{id}", s.handleSavingDelete)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
}

// Handler exposes the composed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
