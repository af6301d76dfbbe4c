// Package retry provides bounded retry with exponential backoff and jitter.
//
// Do runs a function until it succeeds, the attempt budget is exhausted, or
// the context is canceled. Callers classify errors through Options.ShouldRetry
// so permanent failures fail fast. The Backoff strategies are also usable on
// their own for reconnect loops.
package retry
