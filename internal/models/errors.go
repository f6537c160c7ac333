package models

import "errors"

// ErrValidation is returned when a required creation field is blank or a
// request is malformed. The caller re-prompts; no state changed.
var ErrValidation = errors.New("validation error")

// ErrVerification is returned when a submitted completion PIN does not match.
// Ride and user state are left exactly as before the attempt.
var ErrVerification = errors.New("verification failed")

// ErrInvalidState is returned when a transition is attempted on a terminal
// ride or by a user who is not eligible for it. Always surfaced to callers.
var ErrInvalidState = errors.New("invalid state")

// ErrUpstreamUnavailable marks a Route Estimator failure. It is recovered
// through the deterministic fallback and never reaches end users.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

var ErrNotFound = errors.New("not found")

// ErrConflict is returned by stores when an optimistic version check loses.
var ErrConflict = errors.New("version conflict")
