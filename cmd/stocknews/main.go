package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
	"github.com/liuyingduo/stock-news/internal/services/analyzer"
	"github.com/liuyingduo/stock-news/internal/services/content"
	"github.com/liuyingduo/stock-news/internal/services/exchange"
	"github.com/liuyingduo/stock-news/internal/services/ingest"
	"github.com/liuyingduo/stock-news/internal/services/llm"
	"github.com/liuyingduo/stock-news/internal/services/monitor"
	"github.com/liuyingduo/stock-news/internal/services/quotes"
	"github.com/liuyingduo/stock-news/internal/services/radar"
	"github.com/liuyingduo/stock-news/internal/storage/badger"
)

var (
	configPath   = flag.String("config", "", "Configuration file path (TOML)")
	backfillDays = flag.Int("backfill", 0, "Backfill the last N days of disclosures")
	runUpdate    = flag.Bool("update", false, "Pull news for the highest-turnover securities")
	runAnalyze   = flag.Bool("analyze", false, "Enrich stored events that lack analysis")
	runRadar     = flag.Bool("radar", false, "Print the opportunity radar report")
	htmlOut      = flag.String("html", "", "Write the radar report as HTML to this file (with -radar)")
	runMonitor   = flag.Bool("monitor", false, "Run the continuous monitor loops")
	showVersion  = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("StockNews version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	path := *configPath
	if path == "" {
		if _, err := os.Stat("stocknews.toml"); err == nil {
			path = "stocknews.toml"
		}
	}

	config, err := common.LoadFromFile(path)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", path).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
		os.Exit(1)
	}
	defer storage.Close()

	analysis := buildAnalysisService(config, logger)
	batchAnalyzer := analyzer.NewService(storage, analysis, config.AI, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ran := false

	if *backfillDays > 0 {
		ran = true
		if err := runBackfill(ctx, config, storage, logger, *backfillDays); err != nil {
			logger.Fatal().Err(err).Msg("Backfill failed")
			os.Exit(1)
		}
	}

	if *runUpdate {
		ran = true
		if err := runNewsUpdate(ctx, config, storage, logger); err != nil {
			logger.Fatal().Err(err).Msg("News update failed")
			os.Exit(1)
		}
	}

	if *runAnalyze {
		ran = true
		summary, err := batchAnalyzer.ProcessPending(ctx, analyzer.Options{})
		if err != nil {
			logger.Fatal().Err(err).Msg("Analysis failed")
			os.Exit(1)
		}
		logger.Info().
			Int("attempted", summary.Attempted).
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Msg("Analysis complete")
	}

	if *runRadar {
		ran = true
		if err := runRadarReport(ctx, config, storage, logger, *htmlOut); err != nil {
			logger.Fatal().Err(err).Msg("Radar report failed")
			os.Exit(1)
		}
	}

	if *runMonitor {
		ran = true
		sse := exchange.NewSSEClient(config.Exchanges.SSE, config.HTTP, logger)
		telegraph := monitor.NewTelegraphClient(config.HTTP, logger)
		service := monitor.NewService(storage, batchAnalyzer, telegraph, sse, config.Monitor, logger)

		logger.Info().Msg("Monitor running - Press Ctrl+C to stop")
		if err := service.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Fatal().Err(err).Msg("Monitor failed")
			os.Exit(1)
		}
	}

	if !ran {
		flag.Usage()
		os.Exit(2)
	}
}

// buildAnalysisService wires the configured model provider. A missing API key
// degrades to heuristic-only operation instead of aborting.
func buildAnalysisService(config *common.Config, logger arbor.ILogger) interfaces.AnalysisService {
	provider, err := llm.NewProvider(config.AI, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("AI provider unavailable, enrichment degraded")
		return llm.NewAnalysisService(nil, logger)
	}
	return llm.NewAnalysisService(provider, logger)
}

func runBackfill(ctx context.Context, config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger, days int) error {
	clients := make(map[string]exchange.Client)
	if config.Exchanges.SSE.Enabled {
		clients["sse"] = exchange.NewSSEClient(config.Exchanges.SSE, config.HTTP, logger)
	}
	if config.Exchanges.SZSE.Enabled {
		clients["szse"] = exchange.NewSZSEClient(config.Exchanges.SZSE, config.HTTP, logger)
	}
	if config.Exchanges.BSE.Enabled {
		clients["bse"] = exchange.NewBSEClient(config.Exchanges.BSE, config.HTTP, logger)
	}

	rules, err := ingest.LoadSourceRules(config.Ingest.SourcesFile)
	if err != nil {
		return err
	}

	resolver := content.NewBatchResolver(
		content.NewHTMLResolver(config.Content, config.HTTP, logger),
		config.Content, logger)

	service := ingest.NewService(clients, resolver, storage, rules, logger)
	summary, err := service.Backfill(ctx, days)
	if err != nil {
		return err
	}
	logger.Info().
		Int("fetched", summary.Fetched).
		Int("saved", summary.Saved).
		Int("skipped", summary.Skipped).
		Msg("Backfill complete")
	return nil
}

func runNewsUpdate(ctx context.Context, config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger) error {
	rules, err := ingest.LoadSourceRules(config.Ingest.SourcesFile)
	if err != nil {
		return err
	}

	service := ingest.NewService(nil, nil, storage, rules, logger)
	quoteClient := quotes.NewQuoteClient(config.HTTP, logger)
	newsClient := quotes.NewNewsClient(config.HTTP, logger)

	summary, err := service.UpdateFromNews(ctx, quoteClient, newsClient, 10)
	if err != nil {
		return err
	}
	logger.Info().
		Int("fetched", summary.Fetched).
		Int("saved", summary.Saved).
		Int("skipped", summary.Skipped).
		Msg("News update complete")
	return nil
}

func runRadarReport(ctx context.Context, config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger, htmlPath string) error {
	now := time.Now()
	windowHours := int(config.Radar.FreshnessWindowHours)
	cutoff := now.Add(-time.Duration(config.Radar.FreshnessWindowHours * float64(time.Hour)))

	events, _, err := storage.EventStorage().ListEvents(ctx, interfaces.ListEventsOptions{StartDate: cutoff})
	if err != nil {
		return err
	}

	engine := radar.NewEngine(config.Radar, logger)
	cards := engine.BuildCards(events, now)
	overview := radar.BuildOverview(cards, windowHours, now)
	opportunities := radar.Signals(cards, models.DirectionOpportunity, 10)
	risks := radar.Signals(cards, models.DirectionRisk, 10)

	markdown := radar.RenderMarkdown(overview, opportunities, risks)
	fmt.Println(markdown)

	if htmlPath != "" {
		html, err := radar.RenderHTML(markdown)
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
		logger.Info().Str("path", htmlPath).Msg("HTML report written")
	}
	return nil
}
