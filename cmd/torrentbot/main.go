package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"torrentbot/internal/bot"
	"torrentbot/internal/config"
	"torrentbot/internal/domain"
	"torrentbot/internal/metrics"
	"torrentbot/internal/pager"
	"torrentbot/internal/qbittorrent"
	"torrentbot/internal/scheduler"
	"torrentbot/internal/scraper"
	"torrentbot/internal/storage"
)

// pagerCapacity bounds the number of live result views.
const pagerCapacity = 1024

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "torrentbot",
	Short:         "Chat bot that searches Nyaa and sends torrents to qBittorrent",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "./configs", "directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	log.WithFields(logrus.Fields{
		"nyaa_url":        cfg.NyaaURL,
		"qbittorrent_url": cfg.QBittorrentBaseURL,
		"search_fetcher":  cfg.SearchFetcher,
		"command_prefix":  cfg.CommandPrefix,
	}).Info("Configuration loaded successfully")

	// Create context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize Components ---
	log.Info("Initializing components...")

	repo, err := storage.NewBadgerRepository(log)
	if err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing state store")
		}
	}()

	var fetcher scraper.Fetcher
	switch cfg.SearchFetcher {
	case config.FetcherRod:
		fetcher = scraper.NewRodFetcher(cfg.HTTPTimeout, log)
	default:
		fetcher = scraper.NewHTTPFetcher(cfg.HTTPTimeout, log)
	}
	searcher := scraper.NewNyaaScraper(cfg.NyaaURL, fetcher, log)

	qbt, err := qbittorrent.NewClient(cfg.QBittorrentBaseURL, cfg.QBittorrentUsername, cfg.QBittorrentPassword, cfg.HTTPTimeout, log)
	if err != nil {
		return fmt.Errorf("failed to initialize qBittorrent client: %w", err)
	}
	loginQBittorrent(ctx, qbt, log)

	sched := scheduler.New(ctx, func(job domain.ScheduledJob) {
		go fireScheduledJob(ctx, qbt, job, log)
	}, log)

	router := bot.NewRouter(bot.Dependencies{
		Searcher:   searcher,
		Downloader: qbt,
		Scheduler:  sched,
		Repo:       repo,
		Pages:      pager.NewStore(pagerCapacity, cfg.PagerTimeout),
	}, cfg.CommandPrefix, cfg.CommandCooldown, log)

	botHandler, err := bot.NewHandler(cfg.TelegramBotToken, router, log)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot handler: %w", err)
	}

	metricsServer := startMetricsServer(cfg.MetricsAddress, log)

	// --- Application Startup ---
	log.Info("Starting torrentbot...")
	go botHandler.Start(ctx)
	log.Info("torrentbot is running. Press Ctrl+C to exit.")

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	// --- Graceful Shutdown ---
	log.Info("Shutting down torrentbot...")
	stop()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics server")
		}
	}

	log.Info("torrentbot shut down gracefully.")
	return nil
}

// loginQBittorrent opens the WebUI session. The bot still starts when it
// fails; test_qbittorrent retries the login.
func loginQBittorrent(ctx context.Context, qbt *qbittorrent.Client, log logrus.FieldLogger) {
	ok, err := qbt.Authenticate(ctx)
	switch {
	case err != nil:
		log.WithError(err).Warn("Could not reach qBittorrent WebUI at startup")
	case !ok:
		log.Warn("qBittorrent WebUI rejected the configured credentials")
	default:
		log.Info("Logged in to qBittorrent WebUI")
	}
}

// fireScheduledJob submits a scheduled torrent. The outcome is only logged.
func fireScheduledJob(ctx context.Context, qbt *qbittorrent.Client, job domain.ScheduledJob, log logrus.FieldLogger) {
	jobLog := log.WithFields(logrus.Fields{
		"component": "scheduler",
		"job_id":    job.ID,
		"user_id":   job.UserID,
	})

	outcome, err := qbt.Add(ctx, job.MagnetLink)
	switch {
	case err != nil:
		metrics.TorrentsAddedTotal.WithLabelValues("schedule", "error").Inc()
		jobLog.WithError(err).Error("Scheduled download failed")
	case !outcome.Success:
		metrics.TorrentsAddedTotal.WithLabelValues("schedule", "rejected").Inc()
		jobLog.WithField("status_code", outcome.StatusCode).Warn("Scheduled download rejected")
	default:
		metrics.TorrentsAddedTotal.WithLabelValues("schedule", "ok").Inc()
		jobLog.Info("Scheduled download added")
	}
}

func startMetricsServer(address string, log logrus.FieldLogger) *http.Server {
	if address == "" {
		return nil
	}
	server := metrics.NewHTTPServer(address)
	go func() {
		log.WithField("address", address).Info("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	return server
}
