package adapters

import (
	"context"

	"recibos/internal/services"
	"recibos/internal/storage"
)

// SQLiteAdapter serves the dashboards from the SQLite mirror and turns the
// refresh action into a request for the worker.
type SQLiteAdapter struct {
	*storage.SQLiteRepository
	service *services.MirrorService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.MirrorService) *SQLiteAdapter {
	return &SQLiteAdapter{
		SQLiteRepository: storage,
		service:          service,
	}
}

// RequestRefresh publishes a full refresh request and returns its id.
func (a *SQLiteAdapter) RequestRefresh(ctx context.Context) (string, error) {
	req, err := a.service.RequestRefresh(ctx)
	if err != nil {
		return "", err
	}
	return req.ID.String(), nil
}

// LastSync returns the most recent sync run recorded by the worker.
func (a *SQLiteAdapter) LastSync(ctx context.Context) (storage.SyncRun, error) {
	return a.service.LastSync(ctx)
}

// Close releases the database and broker connections.
func (a *SQLiteAdapter) Close() error {
	return a.service.Close()
}
