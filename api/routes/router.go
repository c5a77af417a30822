package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kgcashflow/cashflow-backend/api/controllers"
	"github.com/kgcashflow/cashflow-backend/api/middleware"
	"github.com/kgcashflow/cashflow-backend/internal/bills"
	"github.com/kgcashflow/cashflow-backend/internal/incomes"
	"github.com/kgcashflow/cashflow-backend/internal/ledger"
	"github.com/kgcashflow/cashflow-backend/internal/summary"
	"github.com/kgcashflow/cashflow-backend/pkg/config"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	pkgredis "github.com/kgcashflow/cashflow-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on. Nil stores
// disable idempotency and rate limiting; nil pingers are skipped by readiness.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               controllers.Pinger
	Redis            controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	RateLimiter      pkgredis.RateLimiter
	Gatherer         prometheus.Gatherer

	Incomes incomes.Service
	Bills   bills.Service
	Ledger  ledger.Service
	Summary summary.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{}
	if p.DB != nil {
		deps["database"] = p.DB
	}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	writePolicy := middleware.NewRateLimitPolicy("writes", cfg.RateLimit.WriteWindow, cfg.RateLimit.WriteLimit)

	var summaryCache controllers.SummaryInvalidator
	if p.Summary != nil {
		summaryCache = p.Summary
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.OwnerRateLimit(writePolicy, p.RateLimiter, logg),
			middleware.Idempotency(p.IdempotencyStore, logg),
		)

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/", controllers.AllocationCreate(p.Ledger, summaryCache, logg))
			r.Post("/preview", controllers.AllocationPreview(p.Ledger, logg))
			r.Get("/", controllers.AllocationList(p.Ledger, logg))
		})

		r.Get("/summary", controllers.Summary(p.Summary, logg))

		r.Route("/incomes", func(r chi.Router) {
			r.Post("/", controllers.IncomeCreate(p.Incomes, summaryCache, logg))
			r.Get("/", controllers.IncomeList(p.Incomes, logg))
			r.Get("/{incomeId}", controllers.IncomeGet(p.Incomes, logg))
			r.Get("/{incomeId}/capacity", controllers.IncomeCapacity(p.Ledger, logg))
			r.Delete("/{incomeId}", controllers.IncomeDelete(p.Incomes, summaryCache, logg))
		})

		r.Route("/bills", func(r chi.Router) {
			r.Post("/", controllers.BillCreate(p.Bills, summaryCache, logg))
			r.Get("/", controllers.BillList(p.Bills, logg))
			r.Get("/{billId}", controllers.BillGet(p.Bills, logg))
			r.Delete("/{billId}", controllers.BillDelete(p.Bills, summaryCache, logg))
		})
	})

	return r
}
