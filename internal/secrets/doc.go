// Package secrets resolves named secrets referenced from the
// configuration document (Redis password, Postgres DSN, JWT signing
// secret) so no credential ever lives in the config file itself.
// Backends: environment variables, files under a base directory, and
// HashiCorp Vault KV v2.
package secrets
