// Package authcore is a routing-agnostic authentication core: it issues,
// verifies, and revokes the credential tokens behind user sessions and
// enforces role-based access.
//
// The public surface is [Engine], [Builder], [Config], and the sentinel
// error variables. An Engine combines three collaborators: the HS256
// signer in package token, a revocable refresh-token store (package
// refresh ships in-memory, Redis, and Postgres adapters), and a
// caller-supplied [IdentityStore]. HTTP routing, body parsing, rate
// limiting, and schema ownership for identities stay outside; package
// middleware bridges the engine to net/http handlers.
//
// Session lifecycle: Register and Login mint a 15-minute access token and
// persist a 30-day refresh token. Refresh mints a new access token from a
// live refresh token without rotating it, re-reading the role from the
// identity store so privilege changes apply immediately. Logout revokes
// the refresh token idempotently and never fails visibly. Deleting an
// identity revokes its outstanding refresh tokens before the identity row
// is removed.
//
// Engine methods are safe for concurrent use after [Builder.Build].
// Concurrency safety is delegated to the store adapters' atomic
// single-row operations; the engine holds no locks.
package authcore
