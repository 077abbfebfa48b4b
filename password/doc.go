// Package password hashes and verifies account passwords.
//
// Two algorithms are available behind the [Hasher] interface:
//
//   - [Bcrypt], the default, producing modular-crypt strings such as
//     $2a$10$<salt+hash>.
//   - [Argon2], producing PHC strings:
//     $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Compat] routes verification to whichever hasher recognizes the stored hash, so
// a deployment can switch algorithms without invalidating existing accounts.
//
// Password policy is not enforced here beyond the byte limits each algorithm
// imposes. Callers supply plaintext and receive hashes; nothing is stored or
// logged by this package.
package password
