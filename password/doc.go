// Package password provides the credential-hash primitive consumed by the
// engine: argon2id digests in PHC string format. Password policy (length,
// composition) is the host application's concern; this package only hashes
// and verifies.
package password
