// Package version tracks policy-as-code lifecycle concerns: semantic policy
// versions paired with deterministic configuration hashes, compatibility and
// change-type classification between versions, advisory migration planning,
// and shadow-mode simulation of a proposed configuration against historical
// contexts.
//
// The configuration hash is a SHA-256 digest over the RFC 8785 canonical JSON
// form of the rule configuration, so two structurally identical
// configurations hash identically regardless of key insertion order.
package version
