package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTurnInFlight is returned when a send is attempted while another turn is still streaming.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// ErrNoActiveQuestion is returned when a send is attempted and no question awaits an answer.
var ErrNoActiveQuestion = errors.New("no question is awaiting an answer")

// ErrSchemaEmpty is returned by strict loaders when the schema has no questions.
var ErrSchemaEmpty = errors.New("schema has no questions")

// ErrBackendUnavailable is returned by backends that cannot reach their model.
var ErrBackendUnavailable = errors.New("generative backend unavailable")

// ErrStreamingUnsupported is returned by backends that can only answer in one piece.
// The stream adapter then falls back to a single-shot call.
var ErrStreamingUnsupported = errors.New("backend does not support streaming")

// ErrEmptyInput is returned when a reply contains no text.
var ErrEmptyInput = errors.New("input is empty")

// ErrInputTooLarge is returned when a reply exceeds the configured size limit.
var ErrInputTooLarge = errors.New("input exceeds maximum allowed size")

// ErrInvalidUTF8 is returned when a reply is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
