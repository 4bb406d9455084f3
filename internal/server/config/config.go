package config

import (
	"flag"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env            string `env:"APP_ENV"`
	Host           string `env:"HOST"`
	Port           string `env:"PORT"`
	Address        string `env:"ADDRESS"`
	AdminKey       string `env:"ADMIN_KEY"`
	SecretKey      string `env:"SECRET_KEY"`
	DatabaseDsn    string `env:"DATABASE_DSN"`
	DatabasePath   string `env:"DATABASE_PATH"`
	StoragePath    string `env:"STORAGE_PATH"`
	StoreInterval  int    `env:"STORE_INTERVAL"`
	Restore        bool   `env:"RESTORE"`
	FreeDailyLimit int64  `env:"FREE_DAILY_LIMIT"`
}

func MustLoad() Config {
	// A local .env is optional, it only exists on developer machines.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load .env file: %s", err.Error())
		}
	}

	var conf Config

	flag.StringVar(&conf.Env, "e", EnvDevelopment, "run mode: development or production")
	flag.StringVar(&conf.Address, "a", "", "server running address, overrides host and port")
	flag.StringVar(&conf.AdminKey, "admin-key", "tts_admin_2024", "admin api key")
	flag.StringVar(&conf.SecretKey, "secret-key", "TTS_STUDIO_LICENSE_KEY_2024", "coupon signing key")
	flag.StringVar(&conf.DatabaseDsn, "d", "", "postgres dsn")
	flag.StringVar(&conf.DatabasePath, "s", "", "sqlite database file")
	flag.StringVar(&conf.StoragePath, "f", "licenses.json", "memory storage archive file")
	flag.IntVar(&conf.StoreInterval, "i", 300, "memory storage archive interval in seconds")
	flag.BoolVar(&conf.Restore, "r", true, "restore memory storage from archive file")
	flag.Int64Var(&conf.FreeDailyLimit, "l", 10, "free tier daily generation limit")

	flag.Parse()

	err := env.Parse(&conf)
	if err != nil {
		log.Fatalf("Failed to load environments: %s", err.Error())
	}

	if conf.Env != EnvDevelopment && conf.Env != EnvProduction {
		log.Fatalf("Unknown run mode: %s", conf.Env)
	}

	if conf.Address == "" {
		conf.Address = net.JoinHostPort(conf.host(), conf.port())
	}

	// Production installs run against a persistent database by default.
	if conf.IsProduction() && conf.DatabaseDsn == "" && conf.DatabasePath == "" {
		conf.DatabasePath = "database.db"
	}

	return conf
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c Config) host() string {
	if c.Host != "" {
		return c.Host
	}

	if c.IsProduction() {
		return "0.0.0.0"
	}

	return "127.0.0.1"
}

func (c Config) port() string {
	if c.Port != "" {
		if _, err := strconv.Atoi(c.Port); err != nil {
			log.Fatalf("Invalid port: %s", c.Port)
		}

		return c.Port
	}

	return "5005"
}
