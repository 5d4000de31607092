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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hunterwarburton/tokenscope/internal/auth"
	"github.com/hunterwarburton/tokenscope/internal/config"
	"github.com/hunterwarburton/tokenscope/internal/dnsinfo"
	"github.com/hunterwarburton/tokenscope/internal/logger"
	"github.com/hunterwarburton/tokenscope/internal/observability"
	"github.com/hunterwarburton/tokenscope/internal/offchain"
	"github.com/hunterwarburton/tokenscope/internal/solana"
	"github.com/hunterwarburton/tokenscope/internal/telegram"
	"github.com/hunterwarburton/tokenscope/internal/token"
)

func main() {
	var debug bool

	cmd := &cobra.Command{
		Use:           "tokenscope-bot",
		Short:         "Telegram bot answering Solana token lookups",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(debug)
			return run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger.Info("Starting bot...")

	cfg := config.Load()
	if !logger.IsDebugEnabled() {
		logger.SetLevel(cfg.LogLevel)
	}

	logger.Debug("Configuration loaded: TelegramToken=%v, RPCURL=%s, ResolvConf=%s, MetricsAddr=%s, OnChainFallback=%v",
		cfg.TelegramToken != "", cfg.RPCURL, cfg.ResolvConf, cfg.MetricsAddr, cfg.OnChainFallback)

	if cfg.TelegramToken == "" {
		return errors.New("TG_BOT_TOKEN environment variable is required")
	}

	metrics := observability.NewMetrics("tokenscope", prometheus.DefaultRegisterer)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	chain := solana.NewClient(cfg.RPCURL, solana.WithHTTPClient(httpClient))
	defer chain.Close()

	resolver := token.NewResolver(
		chain,
		offchain.NewFetcher(httpClient),
		dnsinfo.NewSystemEnricher(cfg.ResolvConf),
		token.WithMetrics(metrics),
		token.WithOnChainFallback(cfg.OnChainFallback),
	)

	policyService := auth.NewPolicyService(cfg.AdminUserIDs, cfg.AllowedUserIDs)

	// Each lookup makes at most a handful of sequential requests.
	bot, err := telegram.NewBot(cfg.TelegramToken, resolver, policyService, 4*cfg.HTTPTimeout)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(prometheus.DefaultGatherer))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics on %s/metrics", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped: %v", err)
		}
	}()

	logger.Info("Bot is polling for updates")
	bot.Start(ctx)

	logger.Info("Shutting down bot...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}

	logger.Info("Bot has been shut down")
	return nil
}
