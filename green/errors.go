package green

import "errors"

var (
	// ErrPendingUpdates indicates a direct read of the stored matrix while
	// deferred corrections are still buffered; flush first.
	ErrPendingUpdates = errors.New("green: deferred updates pending, flush first")
	// ErrBadBlockSize indicates a non-positive deferred-buffer block size.
	ErrBadBlockSize = errors.New("green: block size must be >= 1")
	// ErrSite indicates a site index outside [0, n).
	ErrSite = errors.New("green: site index out of range")
)

// panicOverflow is raised when an update is enqueued into a full buffer.
// UpdateRank1 flushes automatically at capacity, so reaching it is a defect.
const panicOverflow = "green: deferred buffer overflow"
