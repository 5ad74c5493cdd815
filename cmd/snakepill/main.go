// Package main is the entry point for the snakepill backend: HTTP API,
// eligibility scheduler and the optional operator bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"snakepill/internal/bot"
	"snakepill/internal/chain"
	"snakepill/internal/config"
	"snakepill/internal/handler"
	"snakepill/internal/pkg/db"
	"snakepill/internal/pkg/lock"
	"snakepill/internal/repository"
	"snakepill/internal/scheduler"
	"snakepill/internal/service"
)

const dbStatsInterval = 30 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Shutting down with error")
	}
	log.Info().Msg("Stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	clock := clockwork.NewRealClock()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		return err
	}

	// Repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	eligibilityRepo := repository.NewEligibilityRepository(dbPool.Pool)
	distributionRepo := repository.NewDistributionRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	leaderboardRepo := repository.NewLeaderboardRepository(dbPool.Pool)
	skinRepo := repository.NewSkinRepository(dbPool.Pool)
	donationRepo := repository.NewDonationRepository(dbPool.Pool)
	onlineRepo := repository.NewOnlineRepository(dbPool.Pool)
	statusRepo := repository.NewStatusRepository(dbPool.Pool)

	// Chain access
	rpcClient := rpc.New(cfg.Solana.Endpoint())
	prices := chain.NewPriceClient(&cfg.Price, clock)
	holdings, err := chain.NewHoldingReader(rpcClient, prices, cfg.Token.Mint)
	if err != nil {
		return err
	}
	payments, err := chain.NewPaymentSender(rpcClient, &cfg.Wallet, &cfg.Solana, &cfg.Payment, clock)
	if err != nil {
		return err
	}
	if payments.HasKey() {
		log.Info().Str("distributor", payments.Address()).Msg("Distributor wallet loaded")
	} else {
		log.Warn().Msg("No distributor key configured, payouts will fail")
	}

	// Services
	walletLock := lock.NewWalletLock()
	eligibilityService := service.NewEligibilityService(playerRepo, eligibilityRepo, holdings, &cfg.Eligibility, clock)
	distributionService := service.NewDistributionService(eligibilityRepo, distributionRepo, payments, &cfg.Distribution, clock)
	gameService := service.NewGameService(playerRepo, sessionRepo, leaderboardRepo, onlineRepo, walletLock, clock)
	skinService := service.NewSkinService(playerRepo, skinRepo, walletLock)
	statusService := service.NewStatusService(statusRepo, donationRepo, distributionService, eligibilityService, gameService)

	log.Info().
		Str("mint", cfg.Token.Mint).
		Str("min_holding_usd", eligibilityService.MinHolding().String()).
		Int("min_playtime", config.MinPlaytimeSeconds).
		Float64("distribution_rate", cfg.Distribution.Rate).
		Msg("Services initialized")

	// Background jobs
	sched := scheduler.New(clock)
	sched.Add(scheduler.Job{
		Name:         "eligibility",
		Interval:     cfg.Scheduler.EligibilityInterval,
		InitialDelay: cfg.Scheduler.InitialDelay,
		Run: func(ctx context.Context) error {
			_, err := eligibilityService.CheckAll(ctx)
			return err
		},
	})
	sched.Add(scheduler.Job{
		Name:     "online-cleanup",
		Interval: cfg.Scheduler.OnlineCleanupInterval,
		Run: func(ctx context.Context) error {
			_, err := gameService.CleanupOffline(ctx)
			return err
		},
	})
	sched.Add(scheduler.Job{
		Name:     "db-stats",
		Interval: dbStatsInterval,
		Run: func(context.Context) error {
			dbPool.RecordStats()
			return nil
		},
	})

	api := handler.NewAPI(gameService, skinService, eligibilityService, distributionService, statusService, dbPool, clock)
	srv := handler.NewServer(&cfg.Server, api.Router(&cfg.Server))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server...")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Bot.Token != "" {
		operatorBot, err := bot.New(&bot.Dependencies{
			Config:       cfg,
			Status:       statusService,
			Eligibility:  eligibilityService,
			Distribution: distributionService,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			operatorBot.Start()
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			operatorBot.Stop()
			return nil
		})
	}

	return g.Wait()
}
