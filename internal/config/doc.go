// Package config provides configuration types, loading, validation and
// hot reload for the gateway.
//
// Configuration is a single YAML document with an apiVersion/kind header
// and a spec section covering the proxy server, the internal admin API,
// observability, tenancy, authorization, caching, eventing, persistence
// and the bootstrap route table. Values support ${VAR} and ${VAR:-default}
// environment substitution. A fsnotify-based Watcher reloads the file on
// change and hands validated configuration to a callback; invalid updates
// are rejected and the previous configuration stays active.
package config
