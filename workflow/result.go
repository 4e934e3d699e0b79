package workflow

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of one workflow
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped" // ingest-only: uploaded and refreshed, not transformed
	OutcomeFailed  Outcome = "failed"
)

// Result is the outcome of processing one input file
type Result struct {
	File     string        `json:"file"`
	Seq      int           `json:"seq"`
	Outcome  Outcome       `json:"outcome"`
	Message  string        `json:"message"`
	Category string        `json:"category,omitempty"` // empty unless Failed
	Duration time.Duration `json:"duration"`

	// ResourceID is the engine resource the file was written to, if any
	ResourceID string `json:"resource_id,omitempty"`
	// Output is the RDF file written for the file, if any
	Output string `json:"output,omitempty"`

	Err error `json:"-"`
}

// Failed reports whether the workflow ended in failure
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// FailureMessage is the message reported for a failed file
func FailureMessage(file, category string) string {
	return fmt.Sprintf("Processing resource '%s' failed with a %s", file, category)
}

func ingestedMessage(file string) string {
	return fmt.Sprintf("'%s' ingested (no transformation).", file)
}

func notPersistedMessage(file string) string {
	return fmt.Sprintf("'%s' transformed (results not persisted).", file)
}

func emptyMessage(file string) string {
	return fmt.Sprintf("'%s' transformed but result is empty.", file)
}

func transformedMessage(file, path string) string {
	return fmt.Sprintf("'%s' transformed. results in '%s'", file, path)
}
