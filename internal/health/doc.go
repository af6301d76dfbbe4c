// Package health exposes liveness and readiness probes for the
// gateway process. Liveness is unconditional; readiness aggregates
// named dependency checks (store, cache, event transport).
package health
