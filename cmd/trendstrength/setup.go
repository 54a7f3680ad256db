package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/trendstrength/internal/config"
	"github.com/newthinker/trendstrength/internal/logger"
	"github.com/newthinker/trendstrength/internal/snapshot"
	"github.com/newthinker/trendstrength/internal/storage/archive"
)

// setup loads and validates the config and builds the process logger
func setup() (*config.Config, *zap.Logger, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	log, err := logger.New(logger.Options{Development: debug || cfg.Log.Development})
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, log, nil
}

func openStorage(cfg *config.Config) (archive.Storage, error) {
	store, err := archive.New(cfg.Storage.Cold.Archive())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func openSnapshots(cfg *config.Config) (*snapshot.Store, error) {
	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(store), nil
}
