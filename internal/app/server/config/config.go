package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultRunAddress = ":8080"
	defaultMigrations = "migrations"
)

type Config struct {
	Env            string
	RunAddress     string
	DatabaseURI    string
	MigrationsPath string
}

func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", defaultRunAddress)
	viper.SetDefault("migrations_path", defaultMigrations)
	viper.SetDefault("app_env", "prod")

	cfg := &Config{
		Env:            viper.GetString("app_env"),
		RunAddress:     viper.GetString("run_address"),
		DatabaseURI:    viper.GetString("database_uri"),
		MigrationsPath: viper.GetString("migrations_path"),
	}

	if cfg.DatabaseURI == "" {
		log.Fatalln("DATABASE_URI is required")
	}
	return cfg
}
