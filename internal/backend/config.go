package backend

import (
	"fmt"

	"recibos/internal/config"
)

// FromAppConfig builds the config of backend typ from the application
// config. The worker passes SYNC_SOURCE, the web server DATA_BACKEND.
func FromAppConfig(appConfig *config.Config, typ string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(typ)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", typ)
	}

	return Config{
		Type:         backendType,
		DecodeStrict: appConfig.StrictDates,
		DataFolder:   appConfig.DataFolder,

		DropboxFolder:       appConfig.DropboxFolder,
		DropboxAppKey:       appConfig.DropboxAppKey,
		DropboxAppSecret:    appConfig.DropboxAppSecret,
		DropboxRefreshToken: appConfig.DropboxRefreshToken,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LocalBackend:
		if c.DataFolder == "" {
			return fmt.Errorf("data folder is required for local backend")
		}
	case DropboxBackend:
		if c.DropboxAppKey == "" || c.DropboxAppSecret == "" || c.DropboxRefreshToken == "" {
			return fmt.Errorf("app key, app secret and refresh token are required for dropbox backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{LocalBackend, DropboxBackend, SheetsBackend, SQLiteBackend}
}
