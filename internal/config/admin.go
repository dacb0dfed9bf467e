package config

import (
	"time"

	"github.com/spf13/pflag"
)

// AdminConfig holds configuration shared by the offline admin commands.
type AdminConfig struct {
	PGDSN              string
	Admin              string
	DefaultSlippageBps uint32
	MaxSlippageBps     uint32
	Threshold          string
	ProtocolsFile      string
	User               string
	Limit              int
	JWTSecret          string
	JWTIssuer          string
	Subject            string
	TokenTTL           time.Duration
	LogLevel           string
}

// LoadAdmin merges config file, environment variables, and flags into AdminConfig.
func LoadAdmin(cfgFile string, flags *pflag.FlagSet) (AdminConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"threshold": "0",
		"limit":     50,
		"ttl":       time.Hour,
		"log-level": "info",
	})
	if err != nil {
		return AdminConfig{}, err
	}

	return AdminConfig{
		PGDSN:              v.GetString("pg-dsn"),
		Admin:              v.GetString("admin"),
		DefaultSlippageBps: v.GetUint32("default-slippage"),
		MaxSlippageBps:     v.GetUint32("max-slippage"),
		Threshold:          v.GetString("threshold"),
		ProtocolsFile:      v.GetString("file"),
		User:               v.GetString("user"),
		Limit:              v.GetInt("limit"),
		JWTSecret:          v.GetString("jwt-secret"),
		JWTIssuer:          v.GetString("jwt-issuer"),
		Subject:            v.GetString("subject"),
		TokenTTL:           v.GetDuration("ttl"),
		LogLevel:           v.GetString("log-level"),
	}, nil
}
