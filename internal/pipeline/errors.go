package pipeline

import "errors"

var (
	// ErrInvalidPayload is returned when an externally supplied payload fails
	// validation. The graph is left untouched.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrGenerationFailed is returned when the creative generator fails or
	// returns nothing. The brand style stage stays active and may be
	// confirmed again.
	ErrGenerationFailed = errors.New("creative generation failed")
	// ErrStaleGeneration is returned when a generation result arrives after a
	// newer confirmation superseded it. The result is discarded.
	ErrStaleGeneration = errors.New("generation superseded by a newer request")
	// ErrStageNotReady is returned when an event arrives before the stage it
	// targets has been activated.
	ErrStageNotReady = errors.New("stage not ready")
)
