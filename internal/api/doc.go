// Package api serves the internal HTTP interface of the gateway:
// permission lookups for backend workers and OIDC group
// synchronization for the identity bridge. The listener is separate
// from the public proxy and must not be exposed outside the platform
// network.
package api
