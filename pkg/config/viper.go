package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/verity/pkg/dotdir"
)

// EnvPrefix is prepended to environment variable overrides, e.g.
// VERITY_STORAGE_PROVIDER.
const EnvPrefix = "VERITY"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the VERITY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (VERITY_STORAGE_PROVIDER, VERITY_INGEST_WORKERS, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the viper precedence chain. Authority
// weights are only read from the config file since they are keyed by
// authority name.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Matcher: MatcherConfig{
			TitleSimilarity:  v.GetFloat64("matcher.title_similarity"),
			NumericTolerance: v.GetFloat64("matcher.numeric_tolerance"),
		},
		Resolver: ResolverConfig{
			VerifiedThreshold: v.GetFloat64("resolver.verified_threshold"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  brokers(v),
			Topic:    v.GetString("eventstream.topic"),
		},
		Ingest: IngestConfig{
			Workers:   v.GetUint("ingest.workers"),
			QueueSize: v.GetUint("ingest.queue_size"),
		},
	}

	weights := v.GetStringMap("authority.weights")
	if len(weights) > 0 {
		cfg.Authority.Weights = make(map[string]float64, len(weights))
		for name := range weights {
			cfg.Authority.Weights[name] = v.GetFloat64("authority.weights." + name)
		}
	}

	applyDefaults(cfg)
	return cfg
}

// brokers accepts either a TOML array or a comma-separated string (the
// form environment variables and flags take).
func brokers(v *viper.Viper) []string {
	if raw, ok := v.Get("eventstream.brokers").(string); ok {
		return splitList(raw)
	}
	return v.GetStringSlice("eventstream.brokers")
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Matching and resolution
	v.SetDefault("matcher.title_similarity", d.Matcher.TitleSimilarity)
	v.SetDefault("matcher.numeric_tolerance", d.Matcher.NumericTolerance)
	v.SetDefault("resolver.verified_threshold", d.Resolver.VerifiedThreshold)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Ingest
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.queue_size", d.Ingest.QueueSize)
}
