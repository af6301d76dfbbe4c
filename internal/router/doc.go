// Package router holds the active route table and matches request
// paths to backends.
//
// Lookups run against an immutable snapshot behind an atomic pointer:
// readers never block, and a bulk refresh swaps the whole table in one
// step so a concurrent lookup sees either the old set or the new set,
// never a mix.
package router
