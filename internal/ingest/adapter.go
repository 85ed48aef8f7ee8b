package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/powdercast/powdercast/internal/models"
)

// Series is one adapter's output for one location: raw per-day records plus
// an optional current-conditions snapshot when the provider carries one.
type Series struct {
	Days    []models.RawDay
	Current *models.CurrentConditions
}

// Adapter converts a location into raw per-day records in fixed units
// (°F, inches, mph). Failures are returned as *ProviderError and never
// propagate past the routing layer.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, loc models.Location) (Series, error)
}

// ErrorKind classifies adapter failures. Both kinds are non-fatal and
// trigger the same fallback routing; the split exists for logging and
// metrics.
type ErrorKind string

const (
	// ErrorTransient covers network failures, timeouts, 5xx, and 429.
	ErrorTransient ErrorKind = "transient"
	// ErrorMalformed covers unexpected payload shapes. The adapter returns
	// failure rather than partially-parsed data.
	ErrorMalformed ErrorKind = "malformed"
)

// ProviderError is the uniform failure type for adapter fetches.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func transientErr(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrorTransient, Err: err}
}

func malformedErr(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrorMalformed, Err: err}
}

// ErrorKindOf reports the classification of an adapter error, or empty for
// non-provider errors.
func ErrorKindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
