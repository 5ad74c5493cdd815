// Package handler exposes the game backend over HTTP.
package handler

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"snakepill/internal/config"
	"snakepill/internal/metrics"
	"snakepill/internal/model"
	"snakepill/internal/service"
)

// GameAPI is the game session surface used by the handlers.
type GameAPI interface {
	Start(ctx context.Context, wallet string) (*service.StartResult, error)
	End(ctx context.Context, req service.EndRequest) (*service.EndResult, error)
	Heartbeat(ctx context.Context, sessionID, wallet string, isPlaying bool) error
	OnlineCount(ctx context.Context) (int64, error)
	CleanupOffline(ctx context.Context) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	PlayerStats(ctx context.Context, wallet string) (*model.Player, error)
}

// SkinAPI is the skin shop surface.
type SkinAPI interface {
	Catalog(ctx context.Context) ([]*model.Skin, error)
	Buy(ctx context.Context, wallet, skinID string) (*model.Player, error)
	Equip(ctx context.Context, wallet, skinID string) (*model.Player, error)
}

// EligibilityAPI is the reconciler surface.
type EligibilityAPI interface {
	CheckAll(ctx context.Context) (*service.ReconcileResult, error)
	Lookup(ctx context.Context, wallet string) (*service.EligibilityReport, error)
	EligiblePlayers(ctx context.Context) ([]*model.EligiblePlayer, error)
}

// DistributionAPI triggers payouts and lists past runs.
type DistributionAPI interface {
	Distribute(ctx context.Context, totalTax decimal.Decimal) (*service.DistributionResult, error)
	History(ctx context.Context, limit int) ([]*model.DistributionLog, error)
}

// StatusAPI serves the status page and donations.
type StatusAPI interface {
	Status(ctx context.Context) (*service.StatusReport, error)
	Donations(ctx context.Context, limit int) ([]*model.Donation, error)
	RecordDonation(ctx context.Context, wallet string, amount decimal.Decimal, signature string, message *string) (bool, error)
}

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API holds the HTTP handlers.
type API struct {
	game         GameAPI
	skins        SkinAPI
	eligibility  EligibilityAPI
	distribution DistributionAPI
	status       StatusAPI
	db           HealthChecker
	clock        clockwork.Clock
}

// NewAPI creates a new API. A nil db makes /health report ok unconditionally.
func NewAPI(
	game GameAPI,
	skins SkinAPI,
	eligibility EligibilityAPI,
	distribution DistributionAPI,
	status StatusAPI,
	db HealthChecker,
	clock clockwork.Clock,
) *API {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &API{
		game:         game,
		skins:        skins,
		eligibility:  eligibility,
		distribution: distribution,
		status:       status,
		db:           db,
		clock:        clock,
	}
}

// Router builds the chi router with middleware and all routes.
func (a *API) Router(cfg *config.ServerConfig) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)

	r.Get("/health", a.handleHealth)
	r.Get("/status", a.handleStatus)
	r.Get("/online", a.handleOnline)
	r.Get("/donates", a.handleDonations)
	r.Get("/leaderboard", a.handleLeaderboard)
	r.Get("/leaderboard/{wallet}", a.handlePlayerStats)

	r.Get("/skins", a.handleSkins)
	r.Post("/skin/buy", a.handleSkinBuy)
	r.Post("/skin/equip", a.handleSkinEquip)

	r.Get("/distributions", a.handleDistributions)

	r.Get("/eligible", a.handleEligible)
	r.Get("/eligible/{wallet}", a.handleEligibility)

	r.Route("/game", func(r chi.Router) {
		r.Post("/start", a.handleGameStart)
		r.Post("/end", a.handleGameEnd)
		r.Post("/heartbeat", a.handleHeartbeat)
	})

	r.With(requireBearer(cfg.CronSecret, true)).Get("/cron/eligibility", a.handleCronEligibility)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireBearer(cfg.AdminSecret, false))
		r.Post("/distribute", a.handleDistribute)
		r.Post("/donates", a.handleRecordDonation)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// NewServer wraps the router in an http.Server with the configured timeouts.
func NewServer(cfg *config.ServerConfig, h http.Handler) *http.Server {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Minute
	}
	return &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}
