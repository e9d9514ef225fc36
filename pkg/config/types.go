package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papercomputeco/verity/pkg/fact"
)

// AuthorityKeyPrefix introduces per-authority weight keys such as
// authority.weights.CRM. The name is normalized like authority lookups.
const AuthorityKeyPrefix = "authority.weights."

// Config represents the persistent verity configuration stored as
// config.toml in the .verity/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Authority   AuthorityConfig   `toml:"authority"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// StorageConfig selects and configures the fact store.
type StorageConfig struct {
	// Provider is one of "memory", "sqlite" or "postgres".
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// MatcherConfig tunes duplicate and conflict detection.
type MatcherConfig struct {
	TitleSimilarity  float64 `toml:"title_similarity,omitempty"`
	NumericTolerance float64 `toml:"numeric_tolerance,omitempty"`
}

// ResolverConfig tunes the resolution policy.
type ResolverConfig struct {
	VerifiedThreshold float64 `toml:"verified_threshold,omitempty"`
}

// AuthorityConfig overrides source authority weights.
type AuthorityConfig struct {
	Weights map[string]float64 `toml:"weights,omitempty"`
}

// EventStreamConfig configures where resolution events are published.
type EventStreamConfig struct {
	// Provider is one of "none" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// IngestConfig sizes the batch ingest worker pool.
type IngestConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error {
			if !isOneOf(v, StorageProviders()) {
				return fmt.Errorf("invalid value for storage.provider: %q (available: %s)", v, strings.Join(StorageProviders(), ", "))
			}
			c.Storage.Provider = v
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"matcher.title_similarity": {
		get: func(c *Config) string { return formatFloat(c.Matcher.TitleSimilarity) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("matcher.title_similarity", v)
			if err != nil {
				return err
			}
			c.Matcher.TitleSimilarity = f
			return nil
		},
	},
	"matcher.numeric_tolerance": {
		get: func(c *Config) string { return formatFloat(c.Matcher.NumericTolerance) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("matcher.numeric_tolerance", v)
			if err != nil {
				return err
			}
			c.Matcher.NumericTolerance = f
			return nil
		},
	},
	"resolver.verified_threshold": {
		get: func(c *Config) string { return formatFloat(c.Resolver.VerifiedThreshold) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("resolver.verified_threshold", v)
			if err != nil {
				return err
			}
			c.Resolver.VerifiedThreshold = f
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if !isOneOf(v, EventStreamProviders()) {
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s)", v, strings.Join(EventStreamProviders(), ", "))
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error { c.EventStream.Brokers = splitList(v); return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"ingest.workers": {
		get: func(c *Config) string { return formatUint(c.Ingest.Workers) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.workers: %w", err)
			}
			c.Ingest.Workers = uint(n)
			return nil
		},
	},
	"ingest.queue_size": {
		get: func(c *Config) string { return formatUint(c.Ingest.QueueSize) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.queue_size: %w", err)
			}
			c.Ingest.QueueSize = uint(n)
			return nil
		},
	},
}

// lookupKey resolves a static key or an authority weight key.
func lookupKey(key string) (configKeyInfo, bool) {
	if info, ok := configKeys[key]; ok {
		return info, true
	}

	name, ok := strings.CutPrefix(key, AuthorityKeyPrefix)
	if !ok || strings.TrimSpace(name) == "" {
		return configKeyInfo{}, false
	}
	name = fact.NormalizeAuthority(name)

	return configKeyInfo{
		get: func(c *Config) string {
			for k, w := range c.Authority.Weights {
				if fact.NormalizeAuthority(k) == name {
					return strconv.FormatFloat(w, 'f', -1, 64)
				}
			}
			return ""
		},
		set: func(c *Config, v string) error {
			for k := range c.Authority.Weights {
				if fact.NormalizeAuthority(k) == name {
					delete(c.Authority.Weights, k)
				}
			}
			// An empty value drops the override.
			if v == "" {
				return nil
			}

			w, err := parseUnitFloat(AuthorityKeyPrefix+name, v)
			if err != nil {
				return err
			}
			if c.Authority.Weights == nil {
				c.Authority.Weights = make(map[string]float64)
			}
			c.Authority.Weights[name] = w
			return nil
		},
	}, true
}

// StorageProviders lists the supported storage.provider values.
func StorageProviders() []string {
	return []string{"memory", "sqlite", "postgres"}
}

// EventStreamProviders lists the supported eventstream.provider values.
func EventStreamProviders() []string {
	return []string{"none", "kafka"}
}

func isOneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func parseUnitFloat(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid value for %s: %v outside [0,1]", key, f)
	}
	return f, nil
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
