package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/obsidianwallet/obsidian-wallet-connect/api"
	"github.com/obsidianwallet/obsidian-wallet-connect/database"
	"github.com/obsidianwallet/obsidian-wallet-connect/provider"
	"github.com/obsidianwallet/obsidian-wallet-connect/session"
	"github.com/obsidianwallet/obsidian-wallet-connect/store"
	"github.com/obsidianwallet/obsidian-wallet-connect/walletmanager"
)

const (
	dialTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
	logger := log.Logger

	db, err := database.InitDatabase(cfg.DataDir, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.DB.Close()

	netwrokController, err := NewNetworkController(cfg.UseNetwork, cfg.Networks)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	var p provider.Provider
	var connectors []walletmanager.Connector
	if cfg.ProviderURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		rpcProvider, err := provider.Dial(ctx, cfg.ProviderURL, logger)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("wallet provider unavailable")
		} else {
			defer rpcProvider.Close()
			log.Info().Str("url", rpcProvider.URL()).Msg("wallet provider ready")
			p = rpcProvider
			connectors = append(connectors, walletmanager.NewInjectedConnector(cfg.Connector.ID, cfg.Connector.Name, p, logger))
		}
	}

	wlm, err := walletmanager.InitWallet(db, logger, cfg.WatchInterval, connectors...)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	walletStore := store.New()
	walletSession := session.New(wlm, walletStore, p, cfg.Connector, netwrokController.GetCurrentNetwork(), logger)
	defer walletSession.Close()

	apis, err := api.InitAPIService(cfg.ServingAddress, walletSession, wlm, walletStore, netwrokController, logger)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	netwrokController.AddNetworkUser(wlm)
	netwrokController.AddNetworkUser(apis)

	err = netwrokController.Start()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info().Stringer("signal", sig).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := apis.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("api shutdown failed")
		}
	}()

	err = apis.Serve()
	if err != nil {
		log.Error().Err(err).Msg("api-service stopped")
	}
	if err := netwrokController.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop network users")
	}
}
