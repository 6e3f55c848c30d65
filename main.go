package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"attraction-insights/config"
	"attraction-insights/services"
	"attraction-insights/storage"
	"attraction-insights/utils"
)

// Options are shared by every subcommand.
type Options struct {
	LogLevel string `long:"log-level" description:"Override LOG_LEVEL (debug, info, warn, error)"`
}

// app carries what the subcommands share once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	dict   *config.Dictionary
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "City attraction data pipeline"
	parser.LongDescription = "Cleans, stores and summarizes city attraction records."

	a := &app{}
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}
		if err := a.init(opts); err != nil {
			return err
		}
		defer a.logger.Sync()
		return cmd.Execute(args)
	}

	mustAdd(parser, "clean", "Clean source files into a CSV", "Reads CSV/XLSX sources, normalizes and deduplicates them.", &cleanCommand{app: a})
	mustAdd(parser, "import", "Clean source files into the database", "Each source file is imported as its own batch.", &importCommand{app: a})
	mustAdd(parser, "scrape", "Scrape sights from Ctrip", "Collects raw sight records with a headless browser.", &scrapeCommand{app: a})
	mustAdd(parser, "stats", "Print dashboard statistics", "Computes every chart from the stored attractions.", &statsCommand{app: a})
	mustAdd(parser, "serve", "Serve the dashboard API", "Starts the HTTP API over the stored attractions.", &serveCommand{app: a})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		if a.logger != nil {
			a.logger.Error("%v", err)
		}
		os.Exit(1)
	}
}

func mustAdd(p *flags.Parser, name, short, long string, cmd any) {
	if _, err := p.AddCommand(name, short, long, cmd); err != nil {
		panic(err)
	}
}

func (a *app) init(opts Options) error {
	a.cfg = config.Load()
	level := a.cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	a.logger = utils.NewLogger(level)

	var err error
	if a.cfg.DictionaryPath != "" {
		a.dict, err = config.LoadDictionary(a.cfg.DictionaryPath)
	} else {
		a.dict, err = config.DefaultDictionary()
	}
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	return nil
}

func (a *app) newCleaner() (*services.Cleaner, error) {
	format, err := services.ParsePriceFormat(a.cfg.PriceFormat)
	if err != nil {
		return nil, err
	}
	return services.NewCleaner(a.dict, services.CleanerOptions{
		Matcher:     services.NewMatcher(a.cfg.MatchStrategy),
		PriceFormat: format,
	}, a.logger), nil
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	retry := &utils.RetryConfig{MaxAttempts: a.cfg.MaxRetries, BaseDelay: time.Second, Logger: a.logger}
	store, err := storage.Open(ctx, a.cfg.DBDriver, a.cfg.DSN(), retry, a.logger)
	if err != nil {
		a.logger.Error("Failed to open the %s store: %v", a.cfg.DBDriver, err)
		if a.cfg.DBDriver != "sqlite" {
			a.logger.Error("Make sure the database is running: docker compose up -d")
		}
		return nil, err
	}
	return store, nil
}

// openCache returns nil when Redis is not configured or unreachable; the
// dashboard then recomputes on every request.
func (a *app) openCache(ctx context.Context) *storage.RedisCache {
	if a.cfg.RedisAddr == "" {
		return nil
	}
	cache, err := storage.NewRedisCache(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		a.logger.Warn("Redis unavailable, dashboard cache disabled: %v", err)
		return nil
	}
	return cache
}

func (a *app) dashboardService(ctx context.Context, store *storage.Store) (*services.DashboardService, func()) {
	agg := services.NewAggregator(store)
	cache := a.openCache(ctx)
	if cache == nil {
		return services.NewDashboardService(agg, nil, a.cfg.CacheTTL, a.logger), func() {}
	}
	return services.NewDashboardService(agg, cache, a.cfg.CacheTTL, a.logger), func() { _ = cache.Close() }
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
