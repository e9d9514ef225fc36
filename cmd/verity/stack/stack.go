// Package stack assembles the runtime shared by verity commands: config from
// the viper precedence chain, the logger, the fact store, the resolution
// event publisher and the truth maintenance engine.
package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/pkg/config"
	"github.com/papercomputeco/verity/pkg/dotdir"
	"github.com/papercomputeco/verity/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/verity/pkg/eventstream/utils"
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/logger"
	"github.com/papercomputeco/verity/pkg/match"
	"github.com/papercomputeco/verity/pkg/storage"
	storageutils "github.com/papercomputeco/verity/pkg/storage/utils"
	"github.com/papercomputeco/verity/pkg/tms"
)

// Persistent flag names registered on the root command.
const (
	FlagDebug     = "debug"
	FlagConfigDir = "config-dir"
	FlagLogFile   = "log-file"
)

// storeFlagKeys are the config.StoreFlags every store-backed command carries.
var storeFlagKeys = []string{
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

// StoreFlags holds the values of the store flags for one command.
type StoreFlags struct {
	provider     string
	sqlitePath   string
	postgresDSN  string
	eventStream  string
	kafkaBrokers string
	kafkaTopic   string
}

// AddStoreFlags registers the store and event stream flags on cmd.
func AddStoreFlags(cmd *cobra.Command, f *StoreFlags) {
	config.AddStringFlag(cmd, config.StoreFlags, config.FlagStorageProvider, &f.provider)
	config.AddStringFlag(cmd, config.StoreFlags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.StoreFlags, config.FlagPostgresDSN, &f.postgresDSN)
	config.AddStringFlag(cmd, config.StoreFlags, config.FlagEventStream, &f.eventStream)
	config.AddStringFlag(cmd, config.StoreFlags, config.FlagKafkaBrokers, &f.kafkaBrokers)
	config.AddStringFlag(cmd, config.StoreFlags, config.FlagKafkaTopic, &f.kafkaTopic)
}

// Stack is an opened verity runtime. Close releases everything it holds.
type Stack struct {
	Config    *config.Config
	Logger    *slog.Logger
	Driver    storage.Driver
	Publisher eventstream.Publisher
	Engine    *tms.Engine

	closers []io.Closer
}

// Config resolves the effective configuration for cmd: flags bound from
// extraKeys and the store flags, then env, config.toml and defaults.
func Config(cmd *cobra.Command, extraKeys ...string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString(FlagConfigDir)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.StoreFlags, slices.Concat(storeFlagKeys, extraKeys))
	cfg := config.FromViper(v)

	if cfg.Storage.Provider == "sqlite" && cfg.Storage.SQLitePath == "" {
		target, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving sqlite path: %w", err)
		}
		cfg.Storage.SQLitePath = config.DefaultSQLitePath(target)
	}

	return cfg, nil
}

// Open builds the runtime for cmd.
func Open(ctx context.Context, cmd *cobra.Command, extraKeys ...string) (*Stack, error) {
	cfg, err := Config(cmd, extraKeys...)
	if err != nil {
		return nil, err
	}

	s := &Stack{Config: cfg}

	debug, _ := cmd.Flags().GetBool(FlagDebug)
	logFile, _ := cmd.Flags().GetString(FlagLogFile)
	if err := s.openLogger(cmd.ErrOrStderr(), debug, logFile); err != nil {
		return nil, err
	}

	s.Driver, err = storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		Logger:       s.Logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.closers = append(s.closers, s.Driver)

	s.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.EventStream.Brokers,
		Topic:        cfg.EventStream.Topic,
		Logger:       s.Logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.closers = append(s.closers, s.Publisher)

	s.Engine, err = tms.New(s.Driver,
		tms.WithWeights(fact.NewWeights(cfg.Authority.Weights)),
		tms.WithMatcherConfig(match.Config{
			TitleSimilarity:  cfg.Matcher.TitleSimilarity,
			NumericTolerance: cfg.Matcher.NumericTolerance,
		}),
		tms.WithVerifiedThreshold(cfg.Resolver.VerifiedThreshold),
		tms.WithLogger(s.Logger),
		tms.WithPublisher(s.Publisher),
	)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// openLogger logs to stderr, pretty on a terminal, and additionally as JSON
// to logFile when set.
func (s *Stack) openLogger(stderr io.Writer, debug bool, logFile string) error {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(logger.IsTerminal(stderr)),
		logger.WithWriter(stderr),
	)

	if logFile == "" {
		s.Logger = console
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	s.closers = append(s.closers, f)

	s.Logger = logger.Multi(console, logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return nil
}

// Close releases the runtime in reverse order of acquisition.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
