package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/codecbackend/ffmpegproc"
	"github.com/mediabunnygo/mediabunny/internal/config"
	"github.com/mediabunnygo/mediabunny/internal/database"
	"github.com/mediabunnygo/mediabunny/internal/database/migrations"
	internalhttp "github.com/mediabunnygo/mediabunny/internal/http"
	"github.com/mediabunnygo/mediabunny/internal/http/handlers"
	"github.com/mediabunnygo/mediabunny/internal/observability"
	"github.com/mediabunnygo/mediabunny/internal/repository"
	"github.com/mediabunnygo/mediabunny/internal/scheduler"
	"github.com/mediabunnygo/mediabunny/internal/service"
	"github.com/mediabunnygo/mediabunny/internal/services"
	"github.com/mediabunnygo/mediabunny/internal/util"
	"github.com/mediabunnygo/mediabunny/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mediabunny conversion job server",
	Long: `Start the mediabunny HTTP server and API.

The server provides:
- REST API for submitting and tracking conversion jobs
- Server-sent progress events per job
- Health check endpoint and OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "mediabunny.db", "Database file path")
	serveCmd.Flags().String("data-dir", "./data", "Base directory for job inputs/outputs")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromViper()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	jobRepo := repository.NewJobRepository(db.DB)

	ffmpegBin := cfg.FFmpeg.BinaryPath
	if ffmpegBin == "" {
		if found, err := util.FindBinary("ffmpeg", "MEDIABUNNY_FFMPEG_BIN"); err == nil {
			ffmpegBin = found
		} else {
			ffmpegBin = "ffmpeg"
			logger.Warn("ffmpeg binary not found on PATH, codec backend may fail to start", slog.Any("error", err))
		}
	}

	registry := codecbackend.NewRegistry()
	registry.Register(ffmpegproc.New(ffmpegBin, logger))

	hwDetector := services.NewHardwareDetector(ffmpegBin)
	if caps, err := hwDetector.Detect(context.Background()); err != nil {
		logger.Warn("hardware acceleration detection failed", slog.Any("error", err))
	} else if caps.Recommended != nil {
		logger.Info("detected hardware acceleration",
			slog.String("type", string(caps.Recommended.Type)),
			slog.String("device", caps.Recommended.DeviceName))
	}

	jobService := service.NewJobService(jobRepo, registry).WithLogger(logger)

	retentionSched := scheduler.NewRetentionScheduler(jobRepo, scheduler.RetentionConfig{
		CronSchedule: retentionCronOrEmpty(cfg.Retention),
		MaxAge:       cfg.Retention.MaxAge,
	}).WithLogger(logger)
	if err := retentionSched.Start(context.Background()); err != nil {
		return fmt.Errorf("starting retention scheduler: %w", err)
	}
	defer retentionSched.Stop()

	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	docsHandler := handlers.NewDocsHandler("mediabunny API", "/openapi.yaml", handlers.WithSystemTheme())
	server.Router().Get("/docs", docsHandler.ServeHTTP)

	healthHandler := handlers.NewHealthHandler(version.Version).WithDB(db.DB)
	healthHandler.Register(server.API())

	jobHandler := handlers.NewJobHandler(jobService).WithMaxInputSize(cfg.Storage.MaxOutputSize.Bytes())
	jobHandler.Register(server.API())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting mediabunny server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

// retentionCronOrEmpty returns the configured cron schedule, or empty to
// disable the sweep when retention is turned off.
func retentionCronOrEmpty(r config.RetentionConfig) string {
	if !r.Enabled {
		return ""
	}
	return r.Cron
}

func loadConfigFromViper() (*config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
