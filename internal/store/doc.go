// Package store selects and constructs the persistence backend for
// tenants, groups, grants and bootstrap routes. The gateway does not
// own this data: the platform control plane writes it, the gateway
// reads it to resolve permissions and seed its route table. Two
// backends exist, PostgreSQL for real deployments and an in-memory
// store for tests and single-node development.
package store
