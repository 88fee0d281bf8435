// Package config handles loading and parsing application configuration.
// Values come from, in increasing priority:
//  1. Defaults declared on the struct tags (env-default:"...")
//  2. An optional YAML file: CONFIG_PATH=/path/to/config.yaml or
//     --config=/path/to/config.yaml
//  3. Environment variables, including a .env file in the working
//     directory when one exists
//
// Nothing is mandatory: with no file and no variables the service listens
// on port 4000, and every contact request fails until MONGO_URL is set.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"..."). When a tag lists
// several variables the first one set wins.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	// LogLevel overrides the level implied by Env: debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`

	Storage    `yaml:"storage"`
	HTTPServer `yaml:"http_server"`
}

// Storage selects and locates the contact store.
type Storage struct {
	// Driver is one of "mongo", "sqlite3", "postgres" or "memory".
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo" validate:"oneof=mongo sqlite3 postgres memory"`

	// URL is the connection string: a mongodb:// URI, a SQLite file path or
	// a PostgreSQL DSN. An empty URL does not stop the server from starting.
	URL string `yaml:"url" env:"MONGO_URL,STORAGE_URL"`

	// Database is the MongoDB database used when URL does not name one.
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"test"`

	// Collection is the MongoDB collection or SQL table holding contacts.
	Collection string `yaml:"collection" env:"STORAGE_COLLECTION" env-default:"contacts" validate:"required"`

	// Timeout bounds each store operation. Zero disables the deadline.
	Timeout time.Duration `yaml:"timeout" env:"STORAGE_TIMEOUT" env-default:"10s" validate:"min=0"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Host string `yaml:"host" env:"HOST"`
	Port string `yaml:"port" env:"PORT,port" env-default:"4000" validate:"required,numeric"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Addr is the TCP address the server listens on, e.g. ":4000".
func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}

// Load reads the configuration from the YAML file at path, when path is
// not empty, then from the environment, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads .env, finds the config file path, and returns the
// validated config. It exits the process on failure: if it returns, the
// config is valid.
func MustLoad() *Config {
	// Existing variables win over .env entries; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("cannot read .env: %s", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatalf("config file does not exist: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}
	return cfg
}
