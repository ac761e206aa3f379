// Package dataset defines the sanctions dataset model: individual
// records and the immutable snapshot the service reads from.
package dataset

import "time"

// Record is one sanctioned-entity entry. Optional fields are empty
// strings, never a distinct missing marker.
type Record struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	Countries string `json:"countries"`
	Addresses string `json:"addresses"`
	Sanctions string `json:"sanctions"`
	Dataset   string `json:"dataset"`
}

// Snapshot is one immutable, fully-parsed copy of the dataset plus its
// fetch metadata. A refresh produces a brand-new Snapshot that
// atomically replaces the old one; nothing ever mutates an existing
// Snapshot, which is what lets readers use it without locking.
type Snapshot struct {
	records   []Record
	source    string
	fetchedAt time.Time
	skipped   int
}

// NewSnapshot constructs a Snapshot over records. The slice is owned
// by the Snapshot from this point on.
func NewSnapshot(records []Record, source string, fetchedAt time.Time, skipped int) *Snapshot {
	return &Snapshot{
		records:   records,
		source:    source,
		fetchedAt: fetchedAt,
		skipped:   skipped,
	}
}

// Records returns the ordered record sequence. Callers must treat the
// slice as read-only.
func (s *Snapshot) Records() []Record {
	return s.records
}

// RowCount returns the number of records in the snapshot.
func (s *Snapshot) RowCount() int {
	return len(s.records)
}

// Source returns the location string the snapshot was fetched from.
func (s *Snapshot) Source() string {
	return s.source
}

// FetchedAt returns the time the snapshot's fetch completed.
func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// Skipped returns the number of source rows dropped during parsing.
func (s *Snapshot) Skipped() int {
	return s.skipped
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.fetchedAt)
}
