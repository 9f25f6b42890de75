// Package energy implements the two-tier energy ledger.
//
// A Ledger pairs a local buffer with a pooled (network) source. Every
// withdrawal is simulate-then-modulate: a dry-run extraction decides whether
// the real extraction happens, so a failed withdrawal never changes either
// source. The local buffer is always tried first.
package energy
