package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// KnownProviders are the provider identities the router can construct.
var KnownProviders = []string{"ollama", "groq", "gemini", "claude", "openai"}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// BreakerConfig is the shared circuit breaker tuning. Vendors keep their
// own failure-threshold defaults when the value here is zero.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	Timeout          string `mapstructure:"timeout"`
	WindowSize       int    `mapstructure:"window_size"`
}

// ProviderConfig carries the connection parameters of one vendor.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Enabled bool   `mapstructure:"enabled"`
}

type MonitorConfig struct {
	Interval string `mapstructure:"interval"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Breaker   BreakerConfig             `mapstructure:"breaker"`
	Monitor   MonitorConfig             `mapstructure:"monitor"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8090")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("breaker.success_threshold", 2)
	viper.SetDefault("breaker.timeout", "60s")
	viper.SetDefault("breaker.window_size", 100)
	viper.SetDefault("monitor.interval", "15s")
	viper.SetDefault("metrics.buffer_size", 256)

	viper.SetDefault("providers.ollama.enabled", true)
	viper.SetDefault("providers.ollama.base_url", "http://localhost:11434")
	viper.SetDefault("providers.ollama.model", "llama3")
	viper.SetDefault("providers.groq.enabled", true)
	viper.SetDefault("providers.groq.model", "llama3-70b-8192")
	viper.SetDefault("providers.gemini.enabled", true)
	viper.SetDefault("providers.gemini.model", "gemini-1.5-pro")
	viper.SetDefault("providers.claude.enabled", true)
	viper.SetDefault("providers.claude.model", "claude-3-opus-20240229")
	viper.SetDefault("providers.openai.enabled", true)
	viper.SetDefault("providers.openai.model", "gpt-4o")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold, validation.Min(0)),
					validation.Field(&bc.SuccessThreshold, validation.Required, validation.Min(1)),
					validation.Field(&bc.Timeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&bc.WindowSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Monitor,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MonitorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Interval, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Providers,
			validation.Required,
			validation.By(validateProviders),
		),
	)
}

func validateProviders(value interface{}) error {
	providers, ok := value.(map[string]ProviderConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a provider map")
	}

	known := make(map[string]bool, len(KnownProviders))
	for _, name := range KnownProviders {
		known[name] = true
	}

	for name, pc := range providers {
		if !known[name] {
			return validation.NewError("validation_unknown_provider", "unknown provider "+name)
		}

		if pc.BaseURL != "" {
			if err := validateServerURL(pc.BaseURL); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServerURL(serverURL string) error {
	if serverURL == "" {
		return validation.NewError("validation_empty_url", "provider URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
