package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/contribtools/ghreport/internal/config"
	"github.com/contribtools/ghreport/internal/githubapi"
	"github.com/contribtools/ghreport/internal/metrics"
	"github.com/contribtools/ghreport/internal/output"
	"github.com/contribtools/ghreport/internal/repoid"
	"github.com/contribtools/ghreport/internal/report"
	"github.com/contribtools/ghreport/internal/serve"
	"github.com/contribtools/ghreport/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ghreport: %v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	repository string
	token      string
	format     string
	outputPath string
	configPath string
	serveAddr  string
}

func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	flags := flag.NewFlagSet("ghreport", flag.ContinueOnError)
	flags.StringVar(&opts.token, "token", "", "GitHub API token (falls back to GITHUB_TOKEN)")
	flags.StringVar(&opts.token, "t", "", "shorthand for -token")
	flags.StringVar(&opts.format, "format", "console", "output format: console, csv, json, html, xlsx")
	flags.StringVar(&opts.format, "f", "console", "shorthand for -format")
	flags.StringVar(&opts.outputPath, "output", "", "output file path (default: generated filename)")
	flags.StringVar(&opts.outputPath, "o", "", "shorthand for -output")
	flags.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	flags.StringVar(&opts.serveAddr, "serve", "", "serve the report over HTTP on this address instead of exiting")

	if err := flags.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if flags.NArg() != 1 {
		return cliOptions{}, fmt.Errorf("expected exactly one repository argument, e.g. ghreport owner/repo")
	}
	opts.repository = flags.Arg(0)
	return opts, nil
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.serveAddr != "" {
		cfg.Serve.ListenAddr = opts.serveAddr
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(logLevel(cfg.LogLevel))
	logger, err := loggerConfig.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	telemetryRuntime, err := telemetry.Setup(telemetry.Config{
		Enabled:          cfg.Telemetry.OTELEnabled,
		ServiceName:      "ghreport",
		TraceMode:        cfg.Telemetry.OTELTraceMode,
		TraceSampleRatio: cfg.Telemetry.OTELTraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetryRuntime.Shutdown(shutdownCtx)
	}()

	ref, err := repoid.Parse(opts.repository)
	if err != nil {
		return err
	}

	rootCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient, err := buildHTTPClient(rootCtx, cfg, resolveToken(opts.token), logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	clientMetrics := metrics.NewClientMetrics(registry)

	requestClient := githubapi.NewClient(httpClient,
		githubapi.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		},
		githubapi.RateLimitPolicy{ResetPadding: cfg.RateLimit.ResetPadding},
	)
	requestClient.Metrics = clientMetrics

	dataClient, err := githubapi.NewDataClient(githubapi.DataClientConfig{
		BaseURL:   cfg.GitHub.APIBaseURL,
		PageSize:  cfg.Paging.PageSize,
		PageDelay: cfg.Paging.PageDelay,
		StatsPoll: githubapi.StatsPollPolicy{
			MaxRetries: cfg.StatsPoll.MaxRetries,
			Interval:   cfg.StatsPoll.Interval,
		},
	}, requestClient)
	if err != nil {
		return fmt.Errorf("build github client: %w", err)
	}
	dataClient.Metrics = clientMetrics

	builder := report.NewBuilder(dataClient, logger)
	built, err := builder.Build(rootCtx, ref)
	if err != nil {
		return err
	}

	if err := output.NewWriter(logger).Write(built, format, opts.outputPath); err != nil {
		return err
	}

	if cfg.Serve.ListenAddr == "" {
		return nil
	}
	return serveReport(rootCtx, cfg.Serve.ListenAddr, built, registry, logger)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	configFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = configFile.Close()
	}()

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveToken prefers the flag, then GITHUB_TOKEN from the environment or
// a .env file in the working directory.
func resolveToken(flagToken string) string {
	if flagToken != "" {
		return flagToken
	}
	_ = godotenv.Load()
	return os.Getenv("GITHUB_TOKEN")
}

func buildHTTPClient(ctx context.Context, cfg *config.Config, token string, logger *zap.Logger) (*http.Client, error) {
	var (
		httpClient *http.Client
		err        error
	)
	switch {
	case cfg.Auth.AppID > 0:
		httpClient, err = githubapi.NewInstallationHTTPClient(githubapi.InstallationAuthConfig{
			AppID:          cfg.Auth.AppID,
			InstallationID: cfg.Auth.InstallationID,
			PrivateKeyPath: cfg.Auth.PrivateKeyPath,
			Timeout:        cfg.GitHub.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build app auth client: %w", err)
		}
	case token != "":
		httpClient, err = githubapi.NewTokenHTTPClient(ctx, token, cfg.GitHub.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("build token auth client: %w", err)
		}
	case cfg.Auth.Token != "":
		httpClient, err = githubapi.NewTokenHTTPClient(ctx, cfg.Auth.Token, cfg.GitHub.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("build token auth client: %w", err)
		}
	default:
		logger.Warn("no credentials supplied, using unauthenticated requests with a low rate limit")
		httpClient = &http.Client{Timeout: cfg.GitHub.RequestTimeout}
	}

	quota, err := githubapi.VerifyCredentials(ctx, httpClient, cfg.GitHub.APIBaseURL)
	if err != nil {
		logger.Warn("credential preflight failed", zap.Error(err))
		return httpClient, nil
	}
	logger.Info("credential preflight ok",
		zap.Int("limit", quota.Limit),
		zap.Int("remaining", quota.Remaining),
		zap.Time("reset_at", quota.ResetAt))
	return httpClient, nil
}

func serveReport(ctx context.Context, addr string, built *report.Report, registry *prometheus.Registry, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           serve.NewHandler(built, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr))
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serverErrCh <- serveErr
		}
		close(serverErrCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-serverErrCh:
		if serveErr != nil {
			return fmt.Errorf("http server failed: %w", serveErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func logLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
