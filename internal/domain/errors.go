package domain

import "errors"

var (
	// ErrFeedNotFound means the (network, asset) pair does not resolve to a
	// feed address in the endpoint registry. A configuration mismatch: fatal
	// to that single call, never to the round.
	ErrFeedNotFound = errors.New("price feed not found")

	// ErrSourceUnavailable means a per-network read failed transiently
	// (connection failure, timeout, malformed response). The sample is
	// dropped and the round continues.
	ErrSourceUnavailable = errors.New("price source unavailable")

	// ErrInvalidSample means a sample is unusable (non-positive price or
	// asset mismatch) and was dropped before deviation math.
	ErrInvalidSample = errors.New("invalid price sample")

	// ErrNotFound is returned by caches on a key miss.
	ErrNotFound = errors.New("not found")

	// ErrNoRound means no monitoring round has completed yet for the asset.
	ErrNoRound = errors.New("no completed round")
)
