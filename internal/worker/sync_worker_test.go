package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recibos/internal/amqp"
	"recibos/internal/core"
	"recibos/internal/source"
	"recibos/internal/source/local"
	"recibos/internal/storage"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func upstreamFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "2024.csv", "NIF,VALOR,DATA EMISSAO,DATA SERVICO\n123456789,40,2024-03-01,2024-03-01\n")
	writeFile(t, dir, "2025.csv", "NIF,VALOR,DATA EMISSAO,DATA SERVICO\n"+
		"123456789,50,2025-01-02,2025-01-02\n"+
		"987654321,25.50,2025-02-02,2025-02-02\n"+
		"abc,10,2025-02-03,2025-02-03\n")
	writeFile(t, dir, "nifs.json", `{"123456789":"Estúdio Norte"}`)
	writeFile(t, dir, "classValues.json", `[{"nif":"123456789","classes":[{"day":"monday","value":50}]}]`)
	writeFile(t, dir, "holidays.json", `{"2025":["2025-01-01"]}`)
	return dir
}

func newMirror(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror.db"), source.DefaultDecodeOptions())
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSyncWorker_FullSync(t *testing.T) {
	dir := upstreamFolder(t)
	mirror := newMirror(t)
	w := NewSyncWorker(local.New(dir, source.DefaultDecodeOptions()), mirror, 2, source.DefaultDecodeOptions())
	ctx := context.Background()

	res, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual))
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Years != 2 || res.Invoices != 3 || res.Skipped != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	years, err := mirror.Years(ctx)
	if err != nil || len(years) != 2 || years[0] != 2025 {
		t.Fatalf("mirror years = %v, %v", years, err)
	}
	batch, err := mirror.Invoices(ctx, 2025)
	if err != nil || len(batch.Invoices) != 2 || len(batch.Skipped) != 1 {
		t.Fatalf("mirror 2025 = %+v, %v", batch, err)
	}
	entities, err := mirror.Entities(ctx)
	if err != nil || entities["123456789"] != "Estúdio Norte" {
		t.Fatalf("mirror entities = %v, %v", entities, err)
	}
	entries, err := mirror.Schedule(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("mirror schedule = %v, %v", entries, err)
	}
	settings, err := mirror.Settings(ctx)
	if err != nil || settings.IVAThreshold != nil {
		t.Fatalf("missing config.json should mirror as empty settings: %+v, %v", settings, err)
	}

	run, err := mirror.LastSyncRun(ctx)
	if err != nil {
		t.Fatalf("LastSyncRun: %v", err)
	}
	if run.Status != storage.SyncSucceeded || run.Years != 2 || run.Invoices != 3 {
		t.Errorf("unexpected sync run: %+v", run)
	}
}

func TestSyncWorker_FullSyncDropsRemovedYears(t *testing.T) {
	dir := upstreamFolder(t)
	mirror := newMirror(t)
	w := NewSyncWorker(local.New(dir, source.DefaultDecodeOptions()), mirror, 4, source.DefaultDecodeOptions())
	ctx := context.Background()

	if _, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual)); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "2024.csv")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonSchedule)); err != nil {
		t.Fatal(err)
	}
	years, _ := mirror.Years(ctx)
	if len(years) != 1 || years[0] != 2025 {
		t.Errorf("years = %v, want [2025]", years)
	}
}

func TestSyncWorker_PartialSyncKeepsOtherYears(t *testing.T) {
	dir := upstreamFolder(t)
	mirror := newMirror(t)
	w := NewSyncWorker(local.New(dir, source.DefaultDecodeOptions()), mirror, 1, source.DefaultDecodeOptions())
	ctx := context.Background()

	if _, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual)); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "2025.csv", "NIF,VALOR,DATA EMISSAO,DATA SERVICO\n123456789,99,2025-06-02,2025-06-02\n")

	res, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual, 2025))
	if err != nil {
		t.Fatal(err)
	}
	if res.Years != 1 || res.Invoices != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	years, _ := mirror.Years(ctx)
	if len(years) != 2 {
		t.Errorf("years = %v, 2024 should be kept", years)
	}
	batch, _ := mirror.Invoices(ctx, 2025)
	if len(batch.Invoices) != 1 || batch.Invoices[0].Value.String() != "99.00" {
		t.Errorf("2025 not replaced: %+v", batch.Invoices)
	}
}

func TestSyncWorker_FailureLeavesMirrorUntouched(t *testing.T) {
	dir := upstreamFolder(t)
	mirror := newMirror(t)
	strict := source.DecodeOptions{Strict: true}
	w := NewSyncWorker(local.New(dir, strict), mirror, 2, strict)
	ctx := context.Background()

	if _, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual)); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "holidays.json", `{"2025":["01/01/2025"]}`)

	_, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual))
	if !errors.Is(err, source.ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
	hs, err := mirror.Holidays(ctx)
	if err != nil || !hs.Contains(core.NewDate(2025, 1, 1)) {
		t.Errorf("previous holidays should survive a failed sync: %v", err)
	}
	run, err := mirror.LastSyncRun(ctx)
	if err != nil || run.Status != storage.SyncFailed || run.Error == "" {
		t.Errorf("failed run not recorded: %+v, %v", run, err)
	}
}

func TestSyncWorker_StartupSyncCheck(t *testing.T) {
	mirror := newMirror(t)
	w := NewSyncWorker(local.New(upstreamFolder(t), source.DefaultDecodeOptions()), mirror, 2, source.DefaultDecodeOptions())
	ctx := context.Background()

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	first, err := mirror.LastSyncRun(ctx)
	if err != nil || first.Reason != amqp.ReasonStartup {
		t.Fatalf("startup sync not recorded: %+v, %v", first, err)
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	second, _ := mirror.LastSyncRun(ctx)
	if second.ID != first.ID {
		t.Error("populated mirror should not sync again")
	}
}

type stubConsumer struct {
	requests []amqp.RefreshRequest
	handled  chan error
}

func (s *stubConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, req := range s.requests {
		s.handled <- handler(ctx, req)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestProcessor_ConsumesRequests(t *testing.T) {
	mirror := newMirror(t)
	w := NewSyncWorker(local.New(upstreamFolder(t), source.DefaultDecodeOptions()), mirror, 2, source.DefaultDecodeOptions())
	consumer := &stubConsumer{
		requests: []amqp.RefreshRequest{amqp.NewRefreshRequest(amqp.ReasonManual)},
		handled:  make(chan error, 1),
	}
	p := NewProcessor(w, consumer, mirror, DefaultProcessorConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Fatalf("handler: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("request not handled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
	years, _ := mirror.Years(context.Background())
	if len(years) != 2 {
		t.Errorf("years = %v", years)
	}
}

func TestSyncWorker_MissingEntitiesClearsMirror(t *testing.T) {
	dir := upstreamFolder(t)
	mirror := newMirror(t)
	w := NewSyncWorker(local.New(dir, source.DefaultDecodeOptions()), mirror, 2, source.DefaultDecodeOptions())
	ctx := context.Background()

	if _, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual)); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "nifs.json")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "holidays.json")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonManual)); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	entities, err := mirror.Entities(ctx)
	if err != nil || len(entities) != 0 {
		t.Errorf("mirror entities = %v, %v, want none", entities, err)
	}
	if _, err := mirror.Fetch(ctx, source.HolidaysDocument); !errors.Is(err, source.ErrNotFound) {
		t.Errorf("holidays should be gone from the mirror, got %v", err)
	}
}
