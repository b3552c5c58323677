package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recibos/internal/config"
	"recibos/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{DataFolder: "/data", StrictDates: true, SQLiteDBPath: "/db/recibos.db"}

	cfg, err := FromAppConfig(app, "sqlite")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/db/recibos.db" || !cfg.DecodeStrict {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(app, "memory"); err == nil {
		t.Error("unknown backend type should fail")
	}
	if _, err := FromAppConfig(nil, "local"); err == nil {
		t.Error("nil app config should fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"local ok", Config{Type: LocalBackend, DataFolder: "/data"}, false},
		{"local without folder", Config{Type: LocalBackend}, true},
		{"dropbox without token", Config{Type: DropboxBackend, DropboxAppKey: "k", DropboxAppSecret: "s"}, true},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, true},
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"invalid type", Config{Type: "memory"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_LocalBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nifs.json"), []byte(`{"123456789":"Estúdio Norte"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: LocalBackend, DataFolder: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	entities, err := res.Backend.Entities(context.Background())
	if err != nil || entities["123456789"] != "Estúdio Norte" {
		t.Errorf("Entities = %v, %v", entities, err)
	}
	if _, ok := res.Backend.(RefreshRequester); ok {
		t.Error("local backend refreshes in process")
	}
}

func TestFactory_SQLiteBackendWithoutBroker(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "recibos.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	t.Cleanup(func() { res.Cleanup() })

	years, err := res.Backend.Years(context.Background())
	if err != nil || len(years) != 0 {
		t.Errorf("empty mirror Years = %v, %v", years, err)
	}
	rr, ok := res.Backend.(RefreshRequester)
	if !ok {
		t.Fatal("sqlite backend should request refreshes from the worker")
	}
	if _, err := rr.RequestRefresh(context.Background()); !errors.Is(err, services.ErrRefreshUnavailable) {
		t.Errorf("expected ErrRefreshUnavailable, got %v", err)
	}
}
