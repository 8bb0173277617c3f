package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/drakos74/signal-router/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of the environment overrides e.g. SIGNAL_ROUTER_TELEGRAM_TOKEN.
	EnvPrefix = "SIGNAL_ROUTER"

	// PaperBroker fills orders virtually.
	PaperBroker = "paper"
	// BinanceBroker routes orders to the binance spot api.
	BinanceBroker = "binance"

	redacted = "****"
)

type Config struct {
	Broker   BrokerConfig   `mapstructure:"broker"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

type BrokerConfig struct {
	Kind       string `mapstructure:"kind" validate:"oneof=paper binance"`
	Key        string `mapstructure:"key" validate:"required_if=Kind binance"`
	Secret     string `mapstructure:"secret" validate:"required_if=Kind binance"`
	QuoteAsset string `mapstructure:"quote_asset" validate:"required"`
	// LiveQuotes prices the paper broker with the binance public prices.
	LiveQuotes bool `mapstructure:"live_quotes"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token" validate:"required_if=Enabled true"`
	ChatID  int64  `mapstructure:"chat_id" validate:"required_if=Enabled true"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port" validate:"min=1,max=65535"`
	Debug bool `mapstructure:"debug"`
}

type EngineConfig struct {
	Workers     int           `mapstructure:"workers" validate:"min=1"`
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
}

type StoreConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// File receives a copy of the operator messages when telegram is disabled.
	File string `mapstructure:"file"`
}

var defaults = map[string]interface{}{
	"broker.kind":         PaperBroker,
	"broker.key":          "",
	"broker.secret":       "",
	"broker.quote_asset":  "USDT",
	"broker.live_quotes":  false,
	"telegram.enabled":    false,
	"telegram.token":      "",
	"telegram.chat_id":    0,
	"server.port":         5000,
	"server.debug":        false,
	"engine.workers":      4,
	"engine.call_timeout": "10s",
	"store.dir":           ".",
	"log.level":           "info",
	"log.format":          "console",
	"log.file":            "",
}

// Load loads the configuration from the defaults, the optional yaml file and the environment.
func Load(file string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config '%s': %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %s: %w", err.Error(), model.ValidationErr)
	}
	return nil
}

// Redacted returns a copy of the config safe for logging.
func (c Config) Redacted() Config {
	if c.Broker.Key != "" {
		c.Broker.Key = redacted
	}
	if c.Broker.Secret != "" {
		c.Broker.Secret = redacted
	}
	if c.Telegram.Token != "" {
		c.Telegram.Token = redacted
	}
	return c
}
