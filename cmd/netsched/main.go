package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"netsched/internal/config"
	appLog "netsched/internal/log"
	"netsched/internal/model"
	"netsched/internal/nets"
	"netsched/internal/schedule"
	"netsched/internal/sitegen"
	"netsched/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath      string
	listen          string
	once            bool
	category        string
	primaryCategory string
	debug           bool
}

func main() {
	appLog.Info("netsched starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.primaryCategory != "" {
		conf.PrimaryCategory = flags.primaryCategory
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"nets_path", conf.NetsPath,
		"source_count", len(conf.Sources),
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"week_window_days", conf.WeekWindowDays,
		"primary_category", conf.PrimaryCategory,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	a := &app{
		cfg:            conf,
		categoryFilter: model.Category(flags.category),
		fetcher:        nets.NewFetcher(conf.CacheDir),
	}

	if err := a.refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
		os.Exit(1)
	}

	if flags.once {
		appLog.Info("single-shot run complete")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := a.refresh(ctx); err != nil {
			// Keep serving the last-known-good snapshot.
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	if err := web.Serve(ctx, conf, a); err != nil {
		appLog.Error("HTTP server error", err)
		os.Exit(1)
	}

	appLog.Info("netsched exiting")
}

// app ties together definition loading, the feed snapshot, and artifact
// generation. It implements web.Provider.
type app struct {
	cfg            *config.Config
	categoryFilter model.Category
	fetcher        *nets.Fetcher

	mu   sync.RWMutex
	defs []model.NetDefinition
	snap schedule.Snapshot
}

// Definitions implements web.Provider.
func (a *app) Definitions() []model.NetDefinition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.defs
}

// Feed implements web.Provider.
func (a *app) Feed() (schedule.Feed, time.Time) {
	return a.snap.Current()
}

// refresh reloads definitions, rebuilds the occurrence feed, swaps the
// snapshot, and rewrites the site artifact when configured.
func (a *app) refresh(ctx context.Context) error {
	now := time.Now()

	defs, err := a.loadDefinitions(ctx)
	if err != nil {
		return err
	}

	feed, err := schedule.BuildFeed(defs, schedule.ExpandConfig{
		// Reach one day back so nets currently on the air stay visible.
		RangeStart: now.AddDate(0, 0, -1),
		RangeEnd:   now.AddDate(0, 0, a.cfg.HorizonDays),
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.defs = defs
	a.mu.Unlock()
	a.snap.Replace(feed, now)

	appLog.Info("schedule refreshed",
		"net_count", len(defs),
		"occurrence_count", len(feed),
		"horizon_days", a.cfg.HorizonDays,
	)

	if a.cfg.OutputPath != "" {
		payload := sitegen.Build(feed, now, sitegen.BuildConfig{
			TimeZone:        a.cfg.Timezone,
			PrimaryCategory: model.Category(a.cfg.PrimaryCategory),
			CategoryFilter:  a.categoryFilter,
			WeekWindow:      time.Duration(a.cfg.WeekWindowDays) * 24 * time.Hour,
		})
		if err := sitegen.Write(a.cfg.OutputPath, payload); err != nil {
			// The in-memory snapshot is fine; only the artifact is stale.
			appLog.Error("failed to write site artifact", err, "path", a.cfg.OutputPath)
		} else {
			appLog.Info("site artifact written", "path", a.cfg.OutputPath)
		}
	}

	return nil
}

// loadDefinitions merges the local nets file with any remote sources.
// Local definitions come first, so they win on duplicate ids.
func (a *app) loadDefinitions(ctx context.Context) ([]model.NetDefinition, error) {
	opts := nets.Options{
		Categories:      categoriesFromConfig(a.cfg),
		DefaultTimeZone: a.cfg.Timezone,
	}

	var defs []model.NetDefinition
	seen := make(map[string]bool)

	if a.cfg.NetsPath != "" {
		set, err := nets.Load(a.cfg.NetsPath, opts)
		if err != nil {
			return nil, err
		}
		for _, def := range set.Nets {
			seen[def.ID] = true
			defs = append(defs, def)
		}
	}

	if len(a.cfg.Sources) > 0 {
		sources := make([]nets.Source, 0, len(a.cfg.Sources))
		for _, sc := range a.cfg.Sources {
			if sc.URL == "" {
				continue
			}
			id := sc.ID
			if id == "" {
				if sc.Name != "" {
					id = sc.Name
				} else {
					id = sc.URL
				}
			}
			sources = append(sources, nets.Source{ID: id, URL: sc.URL})
		}

		results, errs := a.fetcher.FetchAll(ctx, sources)
		if len(errs) > 0 {
			appLog.Error("one or more nets sources failed", errors.Join(errs...), "error_count", len(errs))
		}
		for _, res := range results {
			set, err := nets.Parse(res.Body, opts)
			if err != nil {
				appLog.Error("failed to parse nets source", err, "id", res.Source.ID)
				continue
			}
			for _, def := range set.Nets {
				if seen[def.ID] {
					continue
				}
				seen[def.ID] = true
				defs = append(defs, def)
			}
		}
	}

	if len(defs) == 0 {
		return nil, errors.New("no net definitions loaded")
	}
	return defs, nil
}

func categoriesFromConfig(cfg *config.Config) []model.Category {
	out := make([]model.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		out = append(out, model.Category(c))
	}
	return out
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/netsched/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one load+expand+write cycle and exit")
	flag.StringVar(&cfg.category, "category", "", "Category filter for the generated week list (default: all)")
	flag.StringVar(&cfg.primaryCategory, "primary-category", "", "Category highlighted as the next net (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
