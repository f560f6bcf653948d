package sync

import (
	"time"

	"github.com/stacklok/extguard/internal/cache"
)

// StalenessChecker decides whether a cached snapshot must be refreshed
type StalenessChecker interface {
	// NeedsRefresh reports whether entry should be fetched again and why.
	// A nil entry means there is no snapshot.
	NeedsRefresh(entry *cache.Entry) (bool, string)
}

// ValidityChecker treats a snapshot as fresh for a fixed window after its last network refresh
type ValidityChecker struct {
	validity time.Duration
	now      func() time.Time
}

var _ StalenessChecker = (*ValidityChecker)(nil)

// NewValidityChecker creates a checker with the given validity window. A nil clock uses time.Now.
func NewValidityChecker(validity time.Duration, clock func() time.Time) *ValidityChecker {
	if clock == nil {
		clock = time.Now
	}
	return &ValidityChecker{validity: validity, now: clock}
}

// NeedsRefresh implements StalenessChecker
func (c *ValidityChecker) NeedsRefresh(entry *cache.Entry) (bool, string) {
	if entry == nil {
		return true, ReasonNoCache
	}
	if entry.LastUpdate == nil {
		return true, ReasonNeverRefreshed
	}
	if c.now().Sub(*entry.LastUpdate) < c.validity {
		return false, ReasonCacheFresh
	}
	return true, ReasonCacheStale
}
