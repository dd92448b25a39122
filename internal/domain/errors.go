package domain

import "errors"

// ErrNotFound is returned when the requested journey does not exist in the
// user's collection.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when request input cannot be interpreted
// (malformed time, unknown event kind or plan). The core itself accepts any
// numeric values; this is a surface-level check.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrChecklistIncomplete is returned when a journey is started without both
// the vehicle and trailer checkups ticked. No state changes.
var ErrChecklistIncomplete = errors.New("pre-trip checklist incomplete")

// ErrJourneyCompleted is returned when an event is attached to, or a second
// completion is attempted on, a journey that is already closed.
// Handlers should map this to HTTP 409.
var ErrJourneyCompleted = errors.New("journey already completed")

// ErrQuotaExhausted is returned when the free tier may not start another
// journey. The concrete error is *QuotaDeniedError.
var ErrQuotaExhausted = errors.New("free journey quota exhausted")

// ErrUnauthorized is returned when no authenticated user is present.
var ErrUnauthorized = errors.New("unauthorized")

// ErrPaymentUnavailable is returned when the payment collaborator is not
// configured or rejected the request.
var ErrPaymentUnavailable = errors.New("payment provider unavailable")
