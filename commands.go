package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"attraction-insights/api"
	"attraction-insights/models"
	"attraction-insights/scraper/ctrip"
	"attraction-insights/services"
	"attraction-insights/storage"
)

type cleanCommand struct {
	app    *app
	Output string `short:"o" long:"output" default:"data/final_attractions.csv" description:"Cleaned CSV output path"`
	Report string `long:"report" description:"Write a JSON data quality report to this path"`
	Args   struct {
		Sources []string `positional-arg-name:"SOURCE" required:"1" description:"CSV/XLSX files or directories"`
	} `positional-args:"yes"`
}

func (c *cleanCommand) Execute([]string) error {
	paths, err := storage.ExpandSources(c.Args.Sources)
	if err != nil {
		return err
	}

	var raw []models.RawRecord
	for _, p := range paths {
		records, err := storage.ReadRecords(p)
		if err != nil {
			c.app.logger.Error("[clean] Skipping %s: %v", p, err)
			continue
		}
		c.app.logger.Info("[clean] Read %d records from %s", len(records), p)
		raw = append(raw, records...)
	}
	if len(raw) == 0 {
		return errors.New("no readable records in the given sources")
	}

	cleaner, err := c.app.newCleaner()
	if err != nil {
		return err
	}
	cleaned := cleaner.Clean(raw)

	w, err := storage.NewCleanCSVWriter(c.Output)
	if err != nil {
		return err
	}
	if err := w.WriteAttractions(cleaned); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	c.app.logger.Info("[clean] %d records written to %s", len(cleaned), c.Output)

	if c.Report == "" {
		return nil
	}
	data, err := json.MarshalIndent(services.BuildQualityReport(cleaned), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Report, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	c.app.logger.Info("[clean] Quality report written to %s", c.Report)
	return nil
}

type importCommand struct {
	app     *app
	Replace bool `long:"replace" description:"Clear stored attractions before importing"`
	Args    struct {
		Sources []string `positional-arg-name:"SOURCE" required:"1" description:"CSV/XLSX files or directories"`
	} `positional-args:"yes"`
}

func (c *importCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	paths, err := storage.ExpandSources(c.Args.Sources)
	if err != nil {
		return err
	}
	cleaner, err := c.app.newCleaner()
	if err != nil {
		return err
	}
	store, err := c.app.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	importer := services.NewImporter(cleaner, store, storage.ReadRecords, c.app.cfg.ImportWorkers, c.app.logger)
	report, err := importer.Import(ctx, paths, c.Replace)
	if err != nil {
		return err
	}

	dashboards, closeCache := c.app.dashboardService(ctx, store)
	defer closeCache()
	dashboards.Invalidate(ctx)

	for _, b := range report.Batches {
		if b.Err != "" {
			c.app.logger.Error("[import] batch %s (%s) failed: %s", b.BatchID, b.Source, b.Err)
		}
	}
	if report.ProcessedBatches == 0 && report.FailedBatches > 0 {
		return fmt.Errorf("all %d batches failed", report.FailedBatches)
	}
	return nil
}

type scrapeCommand struct {
	app    *app
	Cities []string `short:"c" long:"city" description:"City to scrape, repeatable (default: 北京 上海 广州 深圳 杭州)"`
	Pages  int      `short:"p" long:"pages" description:"List pages per city (default: PAGES_TO_SCRAPE)"`
	Output string   `short:"o" long:"output" default:"data/scraped_attractions.csv" description:"Raw CSV output path"`
	Import bool     `long:"import" description:"Also clean the scraped records into the database"`
}

func (c *scrapeCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	pages := c.Pages
	if pages <= 0 {
		pages = c.app.cfg.PagesToScrape
	}

	raw, err := ctrip.New(c.app.cfg, c.app.logger).Scrape(ctx, c.Cities, pages)
	if err != nil {
		c.app.logger.Error("[scrape] Scrape stopped early: %v", err)
	}
	if len(raw) == 0 {
		return errors.New("no sights were scraped")
	}

	w, err := storage.NewRawCSVWriter(c.Output)
	if err != nil {
		return err
	}
	if err := writeRaw(w, raw); err != nil {
		return err
	}
	c.app.logger.Info("[scrape] %d raw records saved to %s", len(raw), c.Output)

	if !c.Import {
		return nil
	}
	cleaner, err := c.app.newCleaner()
	if err != nil {
		return err
	}
	store, err := c.app.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stored, err := store.Save(ctx, cleaner.Clean(raw), false)
	if err != nil {
		return err
	}
	c.app.logger.Info("[scrape] %d cleaned records stored", stored)
	return nil
}

type statsCommand struct {
	app      *app
	Province string `long:"province" description:"Only count attractions in this province"`
	City     string `long:"city" description:"Only count attractions in this city"`
}

func (c *statsCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := c.app.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	agg := services.NewAggregator(store)
	if c.Province != "" || c.City != "" {
		agg = agg.WithFilter(models.Filter{Province: c.Province, City: c.City})
	}
	dashboard, err := agg.Dashboard(ctx)
	if err != nil {
		return err
	}
	services.NewInsightService(c.app.logger).Print(dashboard)
	return nil
}

type serveCommand struct {
	app *app
}

func (c *serveCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := c.app.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	dashboards, closeCache := c.app.dashboardService(ctx, store)
	defer closeCache()

	server := api.NewServer(store, dashboards, c.app.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(c.app.cfg.APIPort) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}

func writeRaw(w storage.RawRecordWriter, raw []models.RawRecord) error {
	if err := w.WriteRaw(raw); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
