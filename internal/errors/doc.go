// Package errors provides structured, coded errors for the catalog.
//
// Every failure the catalog can report carries a stable code (e.g. "C001")
// that maps to a category, a short message and a longer explanation. Codes
// are grouped by category:
//   - fetch (C001-C019): remote product API outcomes
//   - validation (C020-C039): rejected filter writes
//   - navigation (C040-C059): URL composition and superseded transitions
//   - protocol (C060-C079): live session messages
//   - config (C080-C089): configuration loading
//   - cli (C090-C099): command failures
//
// # Usage
//
//	err := errors.New(errors.CodeFilterValue).
//	    WithDetail(`value "toys" is not allowed for "category"`)
//
//	logger.Warn(err.Message, "code", err.Code)
//
// Errors wrap their cause, so errors.Is and errors.As from the standard
// library see through them.
package errors
