package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recibos/internal/source"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestFolderSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.json", `["2024.csv","2025.csv"]`)
	writeFile(t, dir, "2025.csv", "NIF,VALOR,DATA EMISSAO,DATA SERVICO\n123456789,50,2025-01-02,2025-01-02\n")
	writeFile(t, dir, "nifs.json", `{"123456789":"Estúdio Norte"}`)
	writeFile(t, dir, "classValues.json", `[{"nif":"123456789","classes":[{"day":"monday","value":50}]}]`)
	writeFile(t, dir, "holidays.json", `{"2025":["2025-01-01"]}`)

	src := New(dir, source.DefaultDecodeOptions())
	ctx := context.Background()

	years, err := src.Years(ctx)
	if err != nil || len(years) != 2 || years[0] != 2025 {
		t.Fatalf("Years = %v, %v", years, err)
	}
	batch, err := src.Invoices(ctx, 2025)
	if err != nil || len(batch.Invoices) != 1 {
		t.Fatalf("Invoices = %+v, %v", batch, err)
	}
	entities, err := src.Entities(ctx)
	if err != nil || entities["123456789"] != "Estúdio Norte" {
		t.Fatalf("Entities = %v, %v", entities, err)
	}
	schedule, err := src.Schedule(ctx)
	if err != nil || len(schedule) != 1 {
		t.Fatalf("Schedule = %v, %v", schedule, err)
	}
	holidays, err := src.Holidays(ctx)
	if err != nil || holidays.Len() != 1 {
		t.Fatalf("Holidays = %v, %v", holidays.Len(), err)
	}
	settings, err := src.Settings(ctx)
	if err != nil || settings.IVAThreshold != nil {
		t.Fatalf("missing config.json should give empty settings: %+v, %v", settings, err)
	}

	_, err = src.Invoices(ctx, 2024)
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing year file, got %v", err)
	}
}

func TestFolderSource_YearsWithoutIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2022.csv", "")
	writeFile(t, dir, "2023.csv", "")
	writeFile(t, dir, "readme.txt", "")

	years, err := New(dir, source.DefaultDecodeOptions()).Years(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(years) != 2 || years[0] != 2023 || years[1] != 2022 {
		t.Fatalf("Years = %v", years)
	}
}

func TestFolder_RejectsPaths(t *testing.T) {
	f := NewFolder(t.TempDir())
	if _, err := f.Fetch(context.Background(), "../secret.json"); err == nil {
		t.Fatal("expected an error for a path outside the folder")
	}
}
