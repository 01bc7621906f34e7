package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/credaudit/internal/factory"
	"github.com/mcoot/credaudit/internal/services/auth"
	"github.com/mcoot/credaudit/internal/services/oracle"
	"github.com/mcoot/credaudit/internal/services/search"
	redisstorage "github.com/mcoot/credaudit/internal/storage/redis"
)

const envPrefix = "CREDAUDIT_"

// Config holds CLI configuration.
// Sources apply in order: defaults, the YAML file, CREDAUDIT_* environment, flags.
type Config struct {
	Storage  string `yaml:"storage" validate:"oneof=memory redis"`
	RedisURL string `yaml:"redis_url" validate:"required_if=Storage redis,omitempty,url"`

	Dictionary string `yaml:"dictionary"`

	Workers                int           `yaml:"workers" validate:"min=1,max=64"`
	Retries                int           `yaml:"retries" validate:"min=0,max=10"`
	RetryBackoff           time.Duration `yaml:"retry_backoff" validate:"min=0"`
	Rate                   float64       `yaml:"rate" validate:"min=0"`
	SuffixLength           int           `yaml:"suffix_length" validate:"min=1,max=6"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures" validate:"min=0"`

	Output    string `yaml:"output" validate:"oneof=text json"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	NoHistory bool   `yaml:"no_history"`

	// BcryptCost is the work factor for passwords added with "accounts add"
	BcryptCost int `yaml:"bcrypt_cost" validate:"min=4,max=31"`

	// Accounts maps usernames to bcrypt hashes imported before each command
	Accounts map[string]string `yaml:"accounts" validate:"dive,keys,required,endkeys,required"`

	// ConfigFile is the YAML file the rest was loaded from
	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	oracleCfg := oracle.DefaultConfig()
	searchCfg := search.DefaultConfig()
	return &Config{
		Storage:                factory.StorageTypeMemory,
		RedisURL:               "",
		Workers:                searchCfg.Workers,
		Retries:                oracleCfg.MaxRetries,
		RetryBackoff:           oracleCfg.RetryBackoff,
		SuffixLength:           searchCfg.SuffixLength,
		MaxConsecutiveFailures: searchCfg.MaxConsecutiveFailures,
		Output:                 "text",
		LogLevel:               "warn",
		BcryptCost:             auth.DefaultConfig().BcryptCost,
	}
}

// LoadFile merges the YAML file at path over c. Keys absent from the file keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.ConfigFile = path
	return nil
}

// ApplyEnv overrides c with any CREDAUDIT_* variables that are set
func (c *Config) ApplyEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if val := os.Getenv(envPrefix + key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(envPrefix + key); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	setString("STORAGE", &c.Storage)
	setString("REDIS_URL", &c.RedisURL)
	setString("DICTIONARY", &c.Dictionary)
	setString("OUTPUT", &c.Output)
	setString("LOG_LEVEL", &c.LogLevel)
	setInt("WORKERS", &c.Workers)
	setInt("RETRIES", &c.Retries)
	setInt("SUFFIX_LENGTH", &c.SuffixLength)
	setInt("MAX_CONSECUTIVE_FAILURES", &c.MaxConsecutiveFailures)
	setInt("BCRYPT_COST", &c.BcryptCost)

	if val := os.Getenv(envPrefix + "RETRY_BACKOFF"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRETRY_BACKOFF: %w", envPrefix, err))
		} else {
			c.RetryBackoff = d
		}
	}
	if val := os.Getenv(envPrefix + "RATE"); val != "" {
		r, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE: %w", envPrefix, err))
		} else {
			c.Rate = r
		}
	}
	if val := os.Getenv(envPrefix + "NO_HISTORY"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sNO_HISTORY: %w", envPrefix, err))
		} else {
			c.NoHistory = b
		}
	}

	return errors.Join(errs...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all violations at once
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Level returns the slog level for LogLevel
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// FactoryConfig translates c into application wiring settings
func (c *Config) FactoryConfig(logger *slog.Logger) factory.Config {
	oracleCfg := oracle.DefaultConfig()
	oracleCfg.MaxRetries = c.Retries
	oracleCfg.RetryBackoff = c.RetryBackoff
	oracleCfg.RateLimit = c.Rate

	searchCfg := search.Config{
		Workers:                c.Workers,
		SuffixLength:           c.SuffixLength,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
	}

	fc := factory.Config{
		AuthConfig:   auth.Config{BcryptCost: c.BcryptCost},
		OracleConfig: &oracleCfg,
		SearchConfig: &searchCfg,
		Logger:       logger,
		StorageType:  c.Storage,
	}
	if c.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
