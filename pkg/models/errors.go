package models

import (
	"errors"
	"fmt"
)

// Failure taxonomy for edit dispatches. Dispatch failures never mutate
// history; they are surfaced to the user and recovery is a manual retry.
var (
	ErrNoImageLoaded   = errors.New("no image loaded")
	ErrBusy            = errors.New("a generation is already in flight")
	ErrInvalidEncoding = errors.New("invalid image encoding")
	ErrUnknownKind     = errors.New("unknown edit operation")
	ErrInvalidAspect   = errors.New("invalid aspect ratio")
	ErrInvalidZoom     = errors.New("invalid zoom level")
	ErrUnknownPreset   = errors.New("unknown camera preset")
)

// MissingInputError names the operation precondition that is not satisfied.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", e.Field)
}

// BlockedError reports an explicit content-block signal from the model. It
// takes precedence over every other response classification.
type BlockedError struct {
	Reason  string
	Message string
}

func (e *BlockedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request blocked (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("request blocked (%s)", e.Reason)
}

// GenerationStoppedError reports an abnormal completion with no image.
type GenerationStoppedError struct {
	Reason string
}

func (e *GenerationStoppedError) Error() string {
	return fmt.Sprintf("generation stopped unexpectedly (%s)", e.Reason)
}

// NoImageError reports a response that carried neither an image nor a block
// or stop signal. Feedback holds any text the model returned instead.
type NoImageError struct {
	Feedback string
}

func (e *NoImageError) Error() string {
	if e.Feedback != "" {
		return fmt.Sprintf("model returned no image: %s", e.Feedback)
	}
	return "model returned no image"
}
