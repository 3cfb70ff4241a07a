package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"squadmint/internal/config"
	"squadmint/internal/contract"
	"squadmint/internal/ledger"
	"squadmint/internal/logger"
	"squadmint/internal/payments"
	"squadmint/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("squadmint", false)
		log.Fatal().Err(err).Msg("config error")
	}
	logger.Init("squadmint", cfg.Debug)

	ctx := context.Background()

	var store ledger.Store
	if cfg.Ledger.DatabaseURL != "" {
		pg, err := ledger.NewPostgresStore(ctx, cfg.Ledger.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("ledger database error")
		}
		defer pg.Close()
		store = pg
	} else {
		fs, err := ledger.NewFileStore(cfg.Ledger.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("ledger file store error")
		}
		store = fs
		log.Warn().Str("path", cfg.Ledger.Path).Msg("DATABASE_URL not set, using file-backed ledger")
	}

	minter, err := contract.NewMinter(ctx, contract.MinterConfig{
		RPCURL:          cfg.Chain.RPCURL,
		PrivateKeyHex:   cfg.Chain.MinterKey,
		ContractAddress: cfg.Chain.ContractAddress,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("minter error")
	}

	reader, err := contract.NewReader(ctx, cfg.Chain.RPCURL, cfg.Chain.ContractAddress, contract.NFTABI)
	if err != nil {
		log.Fatal().Err(err).Msg("contract reader error")
	}

	provider := payments.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	recon := payments.NewReconciler(cfg.Reconciliation.Dir)
	svc := payments.NewService(provider, minter, store, recon,
		cfg.Pricing.UnitPriceUSDCents, int64(cfg.Pricing.MaxPerTransaction))

	apiServer := server.NewServer(cfg, svc, reader, store, recon)

	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownGrace)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
