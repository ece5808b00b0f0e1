package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/store/jsonfile"
	"tally/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case JSONFileBackend:
		return f.createJSONFileBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	s, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite backend: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: s,
		Cleanup: s.Close,
	}, nil
}

func (f *DefaultFactory) createJSONFileBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	s, err := jsonfile.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("initialize jsonfile backend: %w", err)
	}

	f.logger.Info("Initialized JSON file backend", "data_directory", dataDir)

	return &BackendResult{
		Backend: s,
		Cleanup: nil, // nothing held open between operations
	}, nil
}
