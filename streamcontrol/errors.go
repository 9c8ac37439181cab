package streamcontrol

import "errors"

// Sentinel error kinds from spec §7, surfaced by Client implementations so
// the retry wrapper and upstream callers can classify failures without
// depending on any particular SDK's error types.
var (
	// ErrShardMutating means the provider reported "resource in use";
	// retried after 1s by the retry wrapper.
	ErrShardMutating = errors.New("streamcontrol: shard mutation already in flight")

	// ErrThrottled means the provider is rate-limiting the caller;
	// retried with capped exponential backoff.
	ErrThrottled = errors.New("streamcontrol: request throttled")

	// ErrInvalidArgument and ErrMissingParameter are fatal: they bubble up
	// without retry.
	ErrInvalidArgument = errors.New("streamcontrol: invalid argument")
	ErrMissingParameter = errors.New("streamcontrol: missing required parameter")

	// ErrNotSupported signals that UpdateShardCount is unavailable for this
	// request (invalid argument or limit exceeded), telling the Scaler to
	// fall back to the split/merge planner.
	ErrNotSupported = errors.New("streamcontrol: atomic update-shard-count not usable for this request")

	// ErrShardNotFound is returned by GetShardByID when the shard is absent
	// from the current listing.
	ErrShardNotFound = errors.New("streamcontrol: shard not found")
)

// classification is the internal verdict the retry wrapper reaches for a
// given error, deciding whether and how to retry.
type classification int

const (
	classFatal classification = iota
	classRetryResourceInUse
	classRetryThrottled
)

func classify(err error) classification {
	switch {
	case errors.Is(err, ErrShardMutating):
		return classRetryResourceInUse
	case errors.Is(err, ErrThrottled):
		return classRetryThrottled
	default:
		return classFatal
	}
}
