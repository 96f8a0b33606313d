package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "GASTOS"

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type YNABConfig struct {
	TokenEnv string `mapstructure:"token_env"`
	BudgetID string `mapstructure:"budget_id"`
}

type Config struct {
	DataDir   string      `mapstructure:"data_dir"`
	Store     string      `mapstructure:"store"`
	DSN       string      `mapstructure:"dsn"`
	RulesFile string      `mapstructure:"rules_file"`
	LogLevel  string      `mapstructure:"log_level"`
	Addr      string      `mapstructure:"addr"`
	GCS       GCSConfig   `mapstructure:"gcs"`
	Kafka     KafkaConfig `mapstructure:"kafka"`
	YNAB      YNABConfig  `mapstructure:"ynab"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"data-dir":   "data_dir",
	"store":      "store",
	"dsn":        "dsn",
	"rules":      "rules_file",
	"log-level":  "log_level",
	"addr":       "addr",
	"gcs-bucket": "gcs.bucket",
	"budget":     "ynab.budget_id",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("store", "csv")
	v.SetDefault("dsn", "")
	v.SetDefault("rules_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("addr", "0.0.0.0:3000")
	// Keys without a default are invisible to environment lookups on Unmarshal.
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.prefix", "")
	v.SetDefault("gcs.credentials_file", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "ledger_merged")
	v.SetDefault("ynab.token_env", "YNAB_TOKEN")
	v.SetDefault("ynab.budget_id", "")
}

// Build loads configuration from defaults, a .env file, an optional config
// file (config.yaml in the working directory when cfgFile is empty),
// GASTOS_* environment variables and the flags that were set, in increasing
// order of precedence.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case "csv", "memory", "sqlite":
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("store postgres requires dsn")
		}
	case "gcs":
		if c.GCS.Bucket == "" {
			return fmt.Errorf("store gcs requires gcs.bucket")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}
