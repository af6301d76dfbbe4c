// Package grants models access grants and merges them into effective
// permissions.
//
// Grants are additive only. Merging is a pure OR across every active
// grant matching the user or any of their effective groups, so the
// result is independent of grant order and a direct user grant can
// never revoke what a group grant allows. Reducing access always means
// deactivating or deleting a grant.
package grants
