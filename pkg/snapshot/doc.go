// Package snapshot provides tamper-evident, hash-chained snapshots of
// validation runs.
//
// Each snapshot digests its own content (snapshot hash) and links to the
// previous snapshot for the same trip through a chain hash:
//
//	chain_hash = SHA-256(previous_chain_hash || snapshot_hash)
//
// Snapshots are write-once. Stores enforce immutability by refusing to
// overwrite an existing snapshot identity rather than relying on caller
// discipline, and reject snapshots whose serialized form exceeds a fixed
// byte ceiling so audit storage stays bounded.
//
// Three backends implement Store: a file store (one directory per trip, one
// exclusively-created file per snapshot), a SQLite store, and an in-memory
// store for tests. Appends for the same trip are serialized and verify the
// incoming previous hash against the latest chain link before committing, so
// two concurrent decisions can never claim the same prior link.
package snapshot
