package status

import "time"

// SyncPhase represents the outcome of the last refresh attempt for a source
type SyncPhase string

const (
	// SyncPhaseSyncing means a refresh is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last refresh stored new records
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last refresh failed and the cache was left untouched
	SyncPhaseFailed SyncPhase = "Failed"

	// SyncPhaseSkipped means the last refresh decided not to fetch
	SyncPhaseSkipped SyncPhase = "Skipped"
)

// SyncStatus represents the last refresh attempt of one source
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// Reason is the machine readable reason for the phase
	Reason string `json:"reason,omitempty"`

	// LastAttempt is the timestamp of the last refresh attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of failed attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful network refresh
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// RecordCount is the number of records stored by the last successful refresh
	RecordCount int `json:"recordCount,omitempty"`
}
