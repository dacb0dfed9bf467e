package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ROUTER"

// Config holds configuration for the serve command.
type Config struct {
	Listen         string
	PGDSN          string
	RPCURL         string
	ClockCacheTTL  time.Duration
	JWTSecret      string
	JWTIssuer      string
	AutoSwapWindow time.Duration
	NonceWindow    uint64
	RequestTimeout time.Duration
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"listen":           ":8080",
		"clock-cache":      time.Second,
		"auto-swap-window": time.Hour,
		"nonce-window":     uint64(100),
		"request-timeout":  10 * time.Second,
		"log-level":        "info",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Listen:         v.GetString("listen"),
		PGDSN:          v.GetString("pg-dsn"),
		RPCURL:         v.GetString("rpc"),
		ClockCacheTTL:  v.GetDuration("clock-cache"),
		JWTSecret:      v.GetString("jwt-secret"),
		JWTIssuer:      v.GetString("jwt-issuer"),
		AutoSwapWindow: v.GetDuration("auto-swap-window"),
		NonceWindow:    v.GetUint64("nonce-window"),
		RequestTimeout: v.GetDuration("request-timeout"),
		LogLevel:       v.GetString("log-level"),
	}
	return cfg, nil
}

// Validate checks the serve configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("listen address is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("jwt secret is required"))
	}
	if c.AutoSwapWindow <= 0 {
		errs = append(errs, fmt.Errorf("auto swap window must be positive"))
	}
	if c.NonceWindow == 0 {
		errs = append(errs, fmt.Errorf("nonce window must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive"))
	}
	return errors.Join(errs...)
}

// newViper builds a viper instance layered as flags > env > file > defaults.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
