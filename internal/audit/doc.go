// Package audit records security-relevant events (cross-tenant write
// attempts, authorization denials, group synchronization changes) as
// structured log entries backed by Prometheus counters.
package audit
