package backend

import (
	"context"

	"recibos/internal/source"
)

// Backend is a complete data set that can also serve raw documents.
type Backend interface {
	source.Source
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// RefreshRequester is implemented by backends refreshed out of process.
type RefreshRequester interface {
	RequestRefresh(ctx context.Context) (string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	DecodeStrict bool

	// Local folder, also serving the JSON documents of the sheets backend
	DataFolder string

	// Dropbox specific
	DropboxFolder       string
	DropboxAppKey       string
	DropboxAppSecret    string
	DropboxRefreshToken string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	LocalBackend   BackendType = "local"
	DropboxBackend BackendType = "dropbox"
	SheetsBackend  BackendType = "sheets"
	SQLiteBackend  BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case LocalBackend, DropboxBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
