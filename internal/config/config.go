package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
var (
	// AssetDenom is the single fungible asset this vault instance custodies.
	AssetDenom string

	// VaultAccount is the custody account holding the idle balance.
	VaultAccount string

	// OwnerAccount is the identity holding both roles at initialization.
	OwnerAccount string

	// IdleStrategyCap is the allocation cap for the bootstrap idle adapter.
	IdleStrategyCap uint64
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AssetDenom, err = getEnv("VAULT_ASSET_DENOM")
	if err != nil {
		return err
	}

	VaultAccount, err = getEnv("VAULT_ACCOUNT")
	if err != nil {
		return err
	}

	OwnerAccount, err = getEnv("VAULT_OWNER")
	if err != nil {
		return err
	}

	IdleStrategyCap, err = getEnvAsUint64("VAULT_IDLE_CAP")
	if err != nil {
		return err
	}

	log.Debug().
		Str("AssetDenom", AssetDenom).
		Str("VaultAccount", VaultAccount).
		Str("OwnerAccount", OwnerAccount).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
