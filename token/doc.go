// Package token implements the stateless signing engine behind authcore.
//
// A [Manager] issues and verifies two HS256 claim profiles: short-lived
// access tokens carrying the subject's role, and long-lived refresh tokens
// carrying the subject only. Role is deliberately absent from refresh
// claims: the engine re-reads it from the identity store on every refresh,
// so a privilege change takes effect on the next minted access token.
//
// Verification is pure: signature integrity first, then temporal checks,
// with no store lookups. Callers receive one of three sentinel failures
// ([ErrSignature], [ErrExpired], [ErrMalformed]); the engine collapses all
// of them into its generic unauthorized error before anything reaches a
// client.
package token
