package config

import (
	"path/filepath"

	"github.com/papercomputeco/verity/pkg/dotdir"
)

const (
	defaultStorageProvider = "sqlite"

	defaultTitleSimilarity   = 0.8
	defaultNumericTolerance  = 0.05
	defaultVerifiedThreshold = 0.9

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "verity.fact.resolved"

	defaultIngestWorkers   = 4
	defaultIngestQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Matcher: MatcherConfig{
			TitleSimilarity:  defaultTitleSimilarity,
			NumericTolerance: defaultNumericTolerance,
		},
		Resolver: ResolverConfig{
			VerifiedThreshold: defaultVerifiedThreshold,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Ingest: IngestConfig{
			Workers:   defaultIngestWorkers,
			QueueSize: defaultIngestQueueSize,
		},
	}
}

// DefaultSQLitePath is the database file used when storage.sqlite_path is
// unset, placed in the resolved .verity/ directory.
func DefaultSQLitePath(dotdirTarget string) string {
	if dotdirTarget == "" {
		return dotdir.StoreFile
	}
	return filepath.Join(dotdirTarget, dotdir.StoreFile)
}
