// Package config assembles the application configuration from, in ascending
// priority: built-in defaults, a JSON config file, a .env file, environment
// variables, and CLI flags. The merged result is cross-validated before use.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the process.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	RedisAddr           string        `env:"REDIS_ADDR" json:"redis_addr"`
	RedisPassword       string        `env:"REDIS_PASSWORD" json:"redis_password"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	FlushInterval       time.Duration `env:"FLUSH_INTERVAL" json:"flush_interval"`
	FlushQueueCapacity  int           `env:"FLUSH_QUEUE_CAPACITY" json:"flush_queue_capacity"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/prepdeck/migrations",
	FlushInterval:       5 * time.Second,
	FlushQueueCapacity:  64,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(c)
}

// applyDefaults fills every still-unset field of dst from defaults.
func applyDefaults(dst *Config, defaults Config) {
	overlay(dst, defaults, false)
}

// overlay copies the non-zero fields of src into dst. With override false it
// fills only the dst fields that are still zero (defaults mode); with
// override true src wins (priority mode).
func overlay(dst *Config, src Config, override bool) {
	setString := func(dstField *string, srcField string) {
		if srcField != "" && (override || *dstField == "") {
			*dstField = srcField
		}
	}
	setDuration := func(dstField *time.Duration, srcField time.Duration) {
		if srcField != 0 && (override || *dstField == 0) {
			*dstField = srcField
		}
	}
	setInt := func(dstField *int, srcField int) {
		if srcField != 0 && (override || *dstField == 0) {
			*dstField = srcField
		}
	}

	setString(&dst.RunAddr, src.RunAddr)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.DBFileName, src.DBFileName)
	setString(&dst.DatabaseDSN, src.DatabaseDSN)
	setString(&dst.RedisAddr, src.RedisAddr)
	setString(&dst.RedisPassword, src.RedisPassword)
	setDuration(&dst.DBConnectionTimeout, src.DBConnectionTimeout)
	setString(&dst.MigrationsDir, src.MigrationsDir)
	setString(&dst.TrustedSubnet, src.TrustedSubnet)
	setDuration(&dst.FlushInterval, src.FlushInterval)
	setInt(&dst.FlushQueueCapacity, src.FlushQueueCapacity)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips CLI flag parsing; used by tests that call New
// repeatedly.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func loadJSONConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// New builds and validates the configuration. Priority: CLI flags over
// environment variables over the JSON config file over defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	flagValues := Config{}
	configPath := os.Getenv("CONFIG")

	flagSet := flag.NewFlagSet("prepdeck", flag.ContinueOnError)
	flagSet.StringVar(&flagValues.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&flagValues.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&flagValues.DBFileName, "f", "", "JSON file name with database")
	flagSet.StringVar(&flagValues.DatabaseDSN, "d", "", "a string with the database connection details")
	flagSet.StringVar(&flagValues.RedisAddr, "r", "", "redis address in host:port form")
	flagSet.StringVar(&flagValues.TrustedSubnet, "t", "", "trusted subnet in CIDR notation for the internal API")
	flagSet.StringVar(&configPath, "c", configPath, "path to a JSON config file")
	if !options.disableFlagsParsing {
		if err := flagSet.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
	}

	values := Config{}

	if configPath != "" {
		if err := loadJSONConfig(configPath, &values); err != nil {
			return nil, err
		}
	}

	envValues := Config{}
	if err := env.Parse(&envValues); err != nil {
		return nil, err
	}
	overlay(&values, envValues, true)

	overlay(&values, flagValues, true)

	applyDefaults(&values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}
