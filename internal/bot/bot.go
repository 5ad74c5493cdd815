// Package bot runs the optional Telegram operator bot. Operators listed in
// bot.admin_ids can inspect status, check wallets, and trigger
// reconciliation or a distribution from a private chat.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"snakepill/internal/config"
	"snakepill/internal/service"
)

// StatusReader returns the system status.
type StatusReader interface {
	Status(ctx context.Context) (*service.StatusReport, error)
}

// Reconciler runs and inspects eligibility.
type Reconciler interface {
	CheckAll(ctx context.Context) (*service.ReconcileResult, error)
	Lookup(ctx context.Context, wallet string) (*service.EligibilityReport, error)
}

// Distributor pays out taxes.
type Distributor interface {
	Distribute(ctx context.Context, totalTax decimal.Decimal) (*service.DistributionResult, error)
}

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot          *tele.Bot
	cfg          *config.Config
	status       StatusReader
	eligibility  Reconciler
	distribution Distributor
	ctx          context.Context
	cancel       context.CancelFunc
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config       *config.Config
	Status       StatusReader
	Eligibility  Reconciler
	Distribution Distributor
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		status:       deps.Status,
		eligibility:  deps.Eligibility,
		distribution: deps.Distribution,
		ctx:          ctx,
		cancel:       cancel,
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(PrivateChatMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/status", b.handleStatus)
	adminGroup.Handle("/check", b.handleCheck)
	adminGroup.Handle("/reconcile", b.handleReconcile)
	adminGroup.Handle("/distribute", b.handleDistribute)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(helpText)
}

func (b *Bot) handleStatus(c tele.Context) error {
	report, err := b.status.Status(b.ctx)
	if err != nil {
		log.Error().Err(err).Msg("Bot status failed")
		return c.Reply("❌ Failed to load status")
	}
	return c.Reply(formatStatus(report))
}

// handleCheck handles /check <wallet>.
func (b *Bot) handleCheck(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /check <wallet>")
	}
	report, err := b.eligibility.Lookup(b.ctx, args[0])
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}
	return c.Reply(formatEligibility(args[0], report))
}

func (b *Bot) handleReconcile(c tele.Context) error {
	_ = c.Reply("⏳ Reconciling eligibility...")
	res, err := b.eligibility.CheckAll(b.ctx)
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}
	return c.Reply(formatReconcile(res))
}

// handleDistribute handles /distribute <total_tax_sol>.
func (b *Bot) handleDistribute(c tele.Context) error {
	totalTax, ok := parseTax(c.Args())
	if !ok {
		return c.Reply(distributeUsage)
	}

	log.Info().
		Int64("admin_id", c.Sender().ID).
		Str("total_tax_sol", totalTax.String()).
		Str("operation", "distribute").
		Msg("Admin operation executed")

	res, err := b.distribution.Distribute(b.ctx, totalTax)
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}
	return c.Reply(formatDistribution(res))
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting operator bot...")
	b.bot.Start()
}

// Stop stops polling and cancels in-flight handler contexts.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping operator bot...")
	b.cancel()
	b.bot.Stop()
}
