package sync

import (
	"github.com/stacklok/extguard/internal/status"
)

// Refresh reason constants
const (
	ReasonDisabled       = "source-disabled"
	ReasonNoURL          = "no-url"
	ReasonCacheFresh     = "cache-fresh"
	ReasonForced         = "forced"
	ReasonCacheStale     = "cache-stale"
	ReasonNeverRefreshed = "never-refreshed"
	ReasonNoCache        = "no-cache"

	// Bootstrap reasons
	ReasonBootstrapped = "bootstrapped"
	ReasonCachePresent = "cache-present"
	ReasonNotBundled   = "not-bundled"

	ReasonFailed = "failed"
)

// SourceOutcome is the result of processing one source
type SourceOutcome struct {
	Name        string           `json:"name"`
	Phase       status.SyncPhase `json:"phase"`
	Reason      string           `json:"reason"`
	RecordCount int              `json:"recordCount"`
	Message     string           `json:"message,omitempty"`

	Err *Error `json:"-"`
}

// Failed reports whether the source could not be processed
func (o *SourceOutcome) Failed() bool {
	return o.Phase == status.SyncPhaseFailed
}

// BatchResult collects the outcome of every source in one batch
type BatchResult struct {
	RunID     string          `json:"runId"`
	Outcomes  []SourceOutcome `json:"outcomes"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
}

func newBatchResult(runID string) *BatchResult {
	return &BatchResult{RunID: runID, Outcomes: []SourceOutcome{}}
}

func (b *BatchResult) add(o SourceOutcome) {
	b.Outcomes = append(b.Outcomes, o)
	switch o.Phase {
	case status.SyncPhaseComplete:
		b.Succeeded++
	case status.SyncPhaseFailed:
		b.Failed++
	case status.SyncPhaseSkipped:
		b.Skipped++
	}
}

// Outcome returns the outcome recorded for name
func (b *BatchResult) Outcome(name string) (SourceOutcome, bool) {
	for _, o := range b.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return SourceOutcome{}, false
}
