// Package groups models tenant group membership as a directed
// multigraph and flattens it into effective membership sets.
//
// Membership edges can nest groups inside groups and may form cycles.
// Resolution is iterative with a visited set and a bounded depth, so
// it terminates on any graph shape. OIDC-sourced groups are reconciled
// from identity provider claims; manually managed memberships are
// never touched by that reconciliation.
package groups
