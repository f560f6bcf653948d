// Package sync refreshes the cached snapshot of every registered list source.
//
// # Core Types
//
//   - Manager: runs refresh batches, single-source refreshes and the bootstrap load
//   - StalenessChecker: decides whether a cached snapshot is still fresh
//   - BatchResult: per-source outcomes of one batch with success/failure/skip counts
//   - Error: structured per-source failure carrying a Kind and a condition reason
//
// # Refresh Decisions
//
// Sources are processed one at a time in registry order. For each source the
// Manager resolves its descriptor and then either skips it or fetches it:
//
//   - ReasonDisabled: the descriptor is not enabled
//   - ReasonNoURL: the source is local-only
//   - ReasonCacheFresh: the snapshot was refreshed within the validity window
//   - ReasonForced: a forced refresh ignores the snapshot age
//   - ReasonCacheStale: the snapshot is older than the validity window
//   - ReasonNeverRefreshed: the snapshot came from bundled data
//   - ReasonNoCache: there is no snapshot yet
//
// A failed source never stops the batch and never touches its existing snapshot.
//
// # Bootstrap
//
// LoadInitialData fills empty snapshots from the bundled list folders without
// using the network. Snapshots written this way have no lastUpdate, so the next
// unforced batch refreshes them.
//
// The sync/coordinator subpackage runs unforced batches on a fixed interval.
package sync
