package batch

import "fmt"

// ItemStatus is the processing outcome of a single ingested record.
type ItemStatus string

// Record status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusFailed  ItemStatus = "failed"
	StatusSkipped ItemStatus = "skipped"
)

// Result is the outcome of processing one record in an ingestion run.
type Result struct {
	username string
	status   ItemStatus
	err      error
}

// NewOK creates a successful result.
func NewOK(username string) Result { return Result{username: username, status: StatusOK} }

// NewSkipped creates a result for a record whose handle already exists.
func NewSkipped(username string) Result { return Result{username: username, status: StatusSkipped} }

// NewFailed creates a failed result.
func NewFailed(username string, err error) Result {
	return Result{username: username, status: StatusFailed, err: err}
}

// Username returns the record handle, possibly empty for unparseable records.
func (r Result) Username() string { return r.username }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates per-record outcomes of an ingestion run.
type Summary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	switch r.status {
	case StatusOK:
		s.Success++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Total is the number of records processed.
func (s Summary) Total() int { return s.Success + s.Failed + s.Skipped }

// Message renders the human-readable run report.
func (s Summary) Message() string {
	return fmt.Sprintf("Processed %d users: %d added, %d failed, %d skipped.",
		s.Total(), s.Success, s.Failed, s.Skipped)
}
