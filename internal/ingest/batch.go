package ingest

import "time"

// BatchState is the per-batch state machine spec.md §4.7 names.
type BatchState string

const (
	BatchReceived        BatchState = "Received"
	BatchHeadersProposed BatchState = "HeadersProposed"
	BatchMapped          BatchState = "Mapped"
	BatchValidating      BatchState = "Validating"
	BatchPersisted       BatchState = "Persisted"
	BatchReported        BatchState = "Reported"
	BatchAborted         BatchState = "Aborted"
)

// UploadBatch is immutable after completion, per spec.md §3.
type UploadBatch struct {
	ID           string
	ActivityID   string
	Filename     string
	HeaderList   []string
	Mapping      map[int]string // CanonicalField values, stringified for storage
	RowCount     int
	ValidCount   int
	InvalidCount int
	State        BatchState
	AbortedAtRow int // 0 unless State == BatchAborted
	CreatedAt    time.Time
}

// ErrorBreakdown tallies how many rows carried each ErrorKind.
type ErrorBreakdown map[string]int

// UploadReport is the Orchestrator's terminal output for ingest.commit.
type UploadReport struct {
	BatchID         string
	State           BatchState
	Total           int
	Valid           int
	Invalid         int
	ErrorsByKind    ErrorBreakdown
	NewPersons      int
	ExistingPersons int
	// WithinUploadDuplicates counts every row whose (person, activity)
	// registration already existed at insert time, per spec.md §8.3 — this
	// includes repeats within the same file and rows re-ingested from an
	// already-committed file, not just intra-batch repeats.
	WithinUploadDuplicates int
}
