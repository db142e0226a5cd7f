package domain

import "time"

// SyncStats holds statistics about a reconciliation pass.
type SyncStats struct {
	Fetched   int
	Inserted  int
	Updated   int
	Skipped   int
	Processed int
	Published int
	Errors    []string
	Duration  time.Duration
}

// EnrichStats holds statistics about an enrichment pass.
type EnrichStats struct {
	Processed    int
	Enriched     int
	TasksStarted int
	Errors       []string
	Duration     time.Duration
}

// CollectStats holds statistics about a task-collection pass.
type CollectStats struct {
	Processed int
	Completed int
	Failed    int
	Pending   int
	Duration  time.Duration
}
