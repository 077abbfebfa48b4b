// Package pii encrypts personally identifying profile fields before they are
// handed to a user store.
//
// Values are sealed with AES-256-CBC and PKCS#7 padding and rendered as lower-case
// hex so they fit ordinary text columns. The default [IVStatic] mode reuses one
// process-wide IV, which keeps ciphertext byte-compatible with records written by
// earlier deployments but lets equal plaintexts produce equal ciphertexts.
// [IVRandom] draws a fresh IV per value and prefixes it to the output.
//
// The package has no knowledge of users or storage; callers decide which fields
// pass through a [Cipher].
package pii
