package backend

import (
	"context"
	"fmt"

	"recibos/internal/adapters"
	"recibos/internal/amqp"
	"recibos/internal/log"
	"recibos/internal/services"
	"recibos/internal/source"
	"recibos/internal/source/dropbox"
	"recibos/internal/source/google"
	"recibos/internal/source/local"
	"recibos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := source.DecodeOptions{
		Strict: config.DecodeStrict,
		Logger: log.Default(log.ComponentSource),
	}

	switch config.Type {
	case LocalBackend:
		return f.createLocalBackend(config, opts)
	case DropboxBackend:
		return f.createDropboxBackend(ctx, config, opts)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config, opts)
	case SQLiteBackend:
		return f.createSQLiteBackend(config, opts)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLocalBackend(config Config, opts source.DecodeOptions) (*BackendResult, error) {
	f.logger.Info("Initialized local backend", "data_folder", config.DataFolder, "strict_dates", opts.Strict)
	return &BackendResult{Backend: local.New(config.DataFolder, opts)}, nil
}

func (f *DefaultFactory) createDropboxBackend(ctx context.Context, config Config, opts source.DecodeOptions) (*BackendResult, error) {
	opts.Logger = log.Default(log.ComponentDropbox)
	docs, err := dropbox.NewSource(ctx, dropbox.Config{
		AppKey:       config.DropboxAppKey,
		AppSecret:    config.DropboxAppSecret,
		RefreshToken: config.DropboxRefreshToken,
		Folder:       config.DropboxFolder,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Dropbox client: %w", err)
	}
	f.logger.Info("Initialized Dropbox backend", "folder", config.DropboxFolder)
	return &BackendResult{Backend: docs}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config, opts source.DecodeOptions) (*BackendResult, error) {
	opts.Logger = log.Default(log.ComponentSheets)
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, local.New(config.DataFolder, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "documents_folder", config.DataFolder)
	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config, opts source.DecodeOptions) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// optional: without it the refresh action is unavailable
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without refresh requests", log.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	adapter := adapters.NewSQLiteAdapter(repo, services.NewMirrorService(repo, amqpClient))

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: adapter.Close,
	}, nil
}
