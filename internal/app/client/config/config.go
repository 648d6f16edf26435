package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultEnv           = "local"
	defaultDataDir       = ".medisync"
	defaultDBFile        = "medisync.db"
)

type Config struct {
	Env           string
	ServerAddress string
	EnableTLS     bool
	DataDir       string
	DBPath        string

	// Cron specs for the two sync cadence groups.
	SyncFrequentSpec string
	SyncDailySpec    string
}

// MustLoad reads client configuration from the environment (with optional
// .env file) and prepares the data directory.
func MustLoad() *Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("SYNC_FREQUENT_SPEC", "@every 1m")
	viper.SetDefault("SYNC_DAILY_SPEC", "@every 24h")

	dataDir := viper.GetString("DATA_DIR")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dataDir = filepath.Join(homeDir, defaultDataDir)
	}
	_ = os.MkdirAll(dataDir, 0o700)

	return &Config{
		Env:              viper.GetString("APP_ENV"),
		ServerAddress:    viper.GetString("SERVER_ADDRESS"),
		EnableTLS:        viper.GetBool("ENABLE_TLS"),
		DataDir:          dataDir,
		DBPath:           filepath.Join(dataDir, defaultDBFile),
		SyncFrequentSpec: viper.GetString("SYNC_FREQUENT_SPEC"),
		SyncDailySpec:    viper.GetString("SYNC_DAILY_SPEC"),
	}
}
