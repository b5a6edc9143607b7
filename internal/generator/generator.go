package generator

import (
	"context" // Cancellation for the provider call
	"errors"  // Sentinel errors
)

// ErrUnavailable is returned when no provider credential is configured
var ErrUnavailable = errors.New("no generation provider configured")

// Request carries the inputs for one fortune generation
type Request struct {
	PersonName string // Who the fortune is about
	Category   string // Fortune category
	Question   string // The question asked
}

// Generator is the text-generation collaborator. Implementations have no side
// effects; a failed call leaves nothing behind to clean up.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Disabled is a Generator that always fails; wired when no API key is set
type Disabled struct{}

// Generate always returns ErrUnavailable
func (Disabled) Generate(ctx context.Context, req Request) (string, error) {
	return "", ErrUnavailable
}
