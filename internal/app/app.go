package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"asset-insights/internal/classify"
	"asset-insights/internal/config"
	"asset-insights/internal/features"
	"asset-insights/internal/ingest"
	"asset-insights/internal/notify"
	"asset-insights/internal/pipeline"
	"asset-insights/internal/remediate"
	"asset-insights/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output; logs go to the logger.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) newNotifier() notify.Notifier {
	if a.Config.Notify.Enabled && a.Config.Notify.Telegram.Enabled {
		cfg := a.Config.Notify.Telegram
		return notify.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) loadMaps() (*classify.Maps, error) {
	maps, err := classify.Load(a.Config.Classification.Path)
	if err != nil {
		return nil, err
	}
	if a.Config.Classification.Path == "" {
		a.Logger.Debug().Msg("classification.path not set; using built-in universe")
	}
	return maps, nil
}

func (a *App) newNormalizer() *ingest.Normalizer {
	return ingest.NewNormalizer(ingest.Options{
		DateLayouts: a.Config.Input.DateLayouts,
		Sheet:       a.Config.Input.Sheet,
	}, a.Logger)
}

func (a *App) newRunner(maps *classify.Maps, workers int) *pipeline.Runner {
	return pipeline.NewRunner(maps, pipeline.Options{
		Workers: a.Config.ResolveWorkers(workers),
		Thresholds: remediate.Thresholds{
			classify.Crypto: a.Config.Remediation.CryptoMaxMissing,
			classify.Equity: a.Config.Remediation.EquityMaxMissing,
			classify.ETF:    a.Config.Remediation.ETFMaxMissing,
		},
		Features: features.Options{
			Window:      a.Config.Features.Window,
			TradingDays: a.Config.Features.TradingDays,
		},
	}, a.Logger)
}

// PrepareOptions override the configured paths of a prepare run. Empty
// values fall back to configuration.
type PrepareOptions struct {
	Input     string
	Output    string
	XLSXPath  string
	AuditPath string
	Workers   int
	Publish   bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Ticker string
	Limit  int
}

// ChartOptions configure the chart command.
type ChartOptions struct {
	Ticker string
	Path   string
}

// AuditOptions configure the audit command.
type AuditOptions struct {
	Raw   bool
	Style string
	Width int
}
