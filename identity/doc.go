// Package identity provides IdentityStore implementations. The in-memory
// store backs tests and single-process deployments; production setups
// supply their own store over the same interface.
package identity
