// Package proxy forwards matched requests to backend workers. The
// forwarded request carries the caller's identity and effective group
// ids so workers can apply record-level filtering without resolving
// membership again.
package proxy
