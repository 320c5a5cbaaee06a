package types

import "errors"

// Cycle-local failure kinds. Each aborts the current analysis cycle and is
// surfaced to the caller; the next scheduled cycle proceeds independently.
// Wrap with fmt.Errorf("...: %w", kind) and match with errors.Is.
var (
	// ErrInsufficientData: the candle series is absent, empty, or shorter
	// than the longest indicator lookback. A failed or timed-out fetch maps
	// here as well.
	ErrInsufficientData = errors.New("insufficient candle data")

	// ErrMalformedCandle: a row carries a non-positive price or a negative
	// volume.
	ErrMalformedCandle = errors.New("malformed candle")

	// ErrInsufficientHistory: fewer candles exist than the payload's recent
	// window or key-level lookback requires.
	ErrInsufficientHistory = errors.New("insufficient history for payload")

	// ErrNoDecisionBlock: no delimited decision block was found in the
	// reasoning response.
	ErrNoDecisionBlock = errors.New("no decision block in response")

	// ErrSchemaViolation: the decision block is present but a required field
	// is missing, mistyped, or out of range.
	ErrSchemaViolation = errors.New("decision schema violation")

	// ErrInconsistentDecision: a non-WAIT decision lacks entry or stop-loss,
	// or the stop sits on the wrong side of entry for the action.
	ErrInconsistentDecision = errors.New("inconsistent decision")
)
