// Package refresh defines the persistence contract for revocable refresh
// tokens and ships three adapters: an in-process map for embedding and
// tests, a Redis adapter, and a Postgres adapter with embedded migrations.
//
// The contract is deliberately small. Every mutating operation is keyed by
// the unique token string and is either idempotent (Revoke) or
// conflict-checked (Put), so adapters need only atomic single-row
// operations and the engine needs no locks of its own. The revoked flag is
// one-way: no adapter ever clears it.
package refresh
