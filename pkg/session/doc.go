// Package session reads the login session the Infisical CLI leaves on disk.
//
// Two files are involved:
//
//	~/.infisical/infisical-config.json   logged-in user, vault backend, domain
//	~/infisical-keyring/<user>           compact JWE holding the bearer token
//
// Only the "file" vault backend is supported. The record is a five-segment
// compact JWE (PBES2 key wrapping, AES-GCM content encryption) keyed by the
// base64 passphrase stored in the config, or by INFISICAL_VAULT_FILE_PASSPHRASE
// when the config has none.
//
// Decoder.Load distinguishes two failure classes: IsAbsent errors mean there
// is simply no usable session, IsCorrupt errors mean a record exists for the
// logged-in user but is malformed or fails to decrypt.
package session
