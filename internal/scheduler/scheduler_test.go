package scheduler

import (
	"context"
	"errors"
	"testing"

	"recibos/internal/amqp"
)

func TestService_AddJobValidation(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Stop() })

	noop := func(context.Context) error { return nil }
	tests := []struct {
		name    string
		job     string
		cron    string
		wantErr error
	}{
		{"empty name", " ", "0 * * * *", ErrEmptyJobName},
		{"empty cron", "job", "", ErrEmptyCronExpr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddJob(tt.job, tt.cron, 0, noop); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddJob err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := s.AddJob("bad", "not a cron", 0, noop); err == nil {
		t.Error("invalid cron expression should be rejected")
	}
}

func TestRegisterSyncJob(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatal(err)
	}
	job, err := RegisterSyncJob(s, "*/15 * * * *", func(context.Context, amqp.RefreshRequest) error { return nil })
	if err != nil {
		t.Fatalf("RegisterSyncJob: %v", err)
	}
	if job.Name() != SyncJobName {
		t.Errorf("job name = %q", job.Name())
	}

	s.Start()
	if _, err := job.NextRun(); err != nil {
		t.Errorf("NextRun: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop should return the first result, got %v", err)
	}
}

func TestNilService(t *testing.T) {
	var s *Service
	if err := s.Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Stop on nil = %v", err)
	}
	if _, err := s.AddJob("x", "* * * * *", 0, nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("AddJob on nil = %v", err)
	}
}
