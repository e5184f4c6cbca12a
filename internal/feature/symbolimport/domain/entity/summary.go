package entity

import "time"

// ImportSummary reports the outcome of one import run.
//
// Processed equals Inserted + Updated + Skipped: every data row read from the
// directory ends up in exactly one of the three buckets.
type ImportSummary struct {
	Exchange  Source
	Processed int
	Inserted  int
	Updated   int
	Skipped   int
	Published bool
	Timestamp time.Time
}

// UpsertResult holds the write counts returned by the upsert engine.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// ImportEvent is announced to subscribers after a successful commit.
type ImportEvent struct {
	Exchange Source
	Inserted int
	Updated  int
	Trigger  Trigger
}

// PublishedImport is an ImportEvent as read back from the event bus.
type PublishedImport struct {
	ID        string
	Exchange  Source
	Inserted  int
	Updated   int
	Trigger   Trigger
	Timestamp time.Time
}
