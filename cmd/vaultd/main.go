package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/custodia-labs/vaultd/internal/bank"
	"github.com/custodia-labs/vaultd/internal/config"
	"github.com/custodia-labs/vaultd/internal/events"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/state"
	"github.com/custodia-labs/vaultd/internal/strategy"
	"github.com/custodia-labs/vaultd/internal/types"
	"github.com/custodia-labs/vaultd/internal/vault"
	"github.com/custodia-labs/vaultd/internal/web"
)

// main is the entry point for the vault custody service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Vault custody service starting...")

	// Initialize Database Connection (operation receipts)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Vault Assembly ---
	asset := types.Asset(config.AssetDenom)
	assetBank := bank.New(asset)

	notifier := events.MultiNotifier{
		events.LogNotifier{},
		state.NewRecorder(),
	}

	v, err := vault.New(vault.Config{
		Asset:    asset,
		Account:  types.AccountID(config.VaultAccount),
		Bank:     assetBank,
		Owner:    types.AccountID(config.OwnerAccount),
		Notifier: notifier,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}

	// Register the bootstrap idle strategy so the withdrawal cascade has at
	// least one destination from day one.
	idle, err := strategy.NewIdleStrategy(
		"idle-primary",
		asset,
		assetBank,
		types.AccountID(config.VaultAccount+"/idle-primary"),
		v.Account(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create idle strategy")
	}
	owner := types.AccountID(config.OwnerAccount)
	if err := v.AddStrategy(owner, idle, sdkmath.NewIntFromUint64(config.IdleStrategyCap)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register idle strategy")
	}

	log.Info().
		Str("asset", config.AssetDenom).
		Str("owner", config.OwnerAccount).
		Msg("Vault assembled")

	// --- 3. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, v)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting vault read API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down vault custody service")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
