package storage

import (
	"database/sql"
	"time"
)

type Invoice struct {
	ID          int64
	Year        int64
	Position    int64
	NIF         string
	Value       string
	Issued      string
	ServiceDate string
}

type SkippedRow struct {
	Year   int64
	Line   int64
	Reason string
}

type Entity struct {
	NIF  string
	Name string
}

type Document struct {
	Name      string
	Body      []byte
	UpdatedAt time.Time
}

type SyncRun struct {
	ID         int64
	RequestID  string
	Reason     string
	Status     string
	Years      int64
	Invoices   int64
	Error      string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// Sync run statuses.
const (
	SyncRunning   = "running"
	SyncSucceeded = "succeeded"
	SyncFailed    = "failed"
)
