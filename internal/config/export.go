package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	PGDSN             string
	FromSeq           uint64
	ToSeq             uint64
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	GapGrace          time.Duration
	LogLevel          string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"batch-size":         uint64(500),
		"out":                "./data/swaps.jsonl",
		"checkpoint":         "./data/export_checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"gap-grace":          5 * time.Minute,
		"log-level":          "info",
	})
	if err != nil {
		return ExportConfig{}, err
	}

	return ExportConfig{
		PGDSN:             v.GetString("pg-dsn"),
		FromSeq:           v.GetUint64("from"),
		ToSeq:             v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		GapGrace:          v.GetDuration("gap-grace"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}
