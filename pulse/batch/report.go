package batch

import (
	"time"

	"github.com/teranos/tpu/workflow"
)

// Report summarizes one batch run. Results are in completion order.
type Report struct {
	RunID     string            `json:"run_id"`
	Results   []workflow.Result `json:"results"`
	Started   time.Time         `json:"started"`
	Elapsed   time.Duration     `json:"elapsed"`
	Succeeded int               `json:"succeeded"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
}

func (r *Report) add(res workflow.Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case workflow.OutcomeSuccess:
		r.Succeeded++
	case workflow.OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Total returns the number of files processed
func (r *Report) Total() int {
	return len(r.Results)
}

// Summary returns the counters as emitter metadata
func (r *Report) Summary() map[string]interface{} {
	return map[string]interface{}{
		"run_id":    r.RunID,
		"files":     r.Total(),
		"succeeded": r.Succeeded,
		"skipped":   r.Skipped,
		"failed":    r.Failed,
		"elapsed":   r.Elapsed.Round(time.Millisecond).String(),
	}
}
