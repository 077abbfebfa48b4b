package password

import (
	"errors"
	"strings"
)

var (
	// ErrTooLong is returned when a password exceeds the algorithm's byte limit.
	ErrTooLong = errors.New("password too long")
	// ErrUnrecognizedHash is returned when no configured hasher understands a
	// stored hash.
	ErrUnrecognizedHash = errors.New("unrecognized password hash")
)

// Hasher produces and checks password hashes. Implementations must be safe for
// concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Recognizer is implemented by hashers that can tell whether an encoded hash
// belongs to them.
type Recognizer interface {
	Recognizes(encodedHash string) bool
}

// Upgrader is implemented by hashers that can tell whether a hash they
// recognize was written with weaker settings than their own.
type Upgrader interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Compat hashes with a primary hasher and verifies with the first hasher that
// recognizes the stored format.
type Compat struct {
	primary Hasher
	all     []Hasher
}

// NewCompat builds a [Compat]. fallbacks are consulted only for verification.
func NewCompat(primary Hasher, fallbacks ...Hasher) *Compat {
	all := make([]Hasher, 0, 1+len(fallbacks))
	all = append(all, primary)
	all = append(all, fallbacks...)
	return &Compat{primary: primary, all: all}
}

// Hash delegates to the primary hasher.
func (c *Compat) Hash(password string) (string, error) {
	return c.primary.Hash(password)
}

// Verify delegates to the hasher that recognizes encodedHash.
func (c *Compat) Verify(password, encodedHash string) (bool, error) {
	for _, h := range c.all {
		r, ok := h.(Recognizer)
		if !ok || r.Recognizes(encodedHash) {
			return h.Verify(password, encodedHash)
		}
	}
	return false, ErrUnrecognizedHash
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// primary hash. Hashes in a fallback format always need one.
func (c *Compat) NeedsUpgrade(encodedHash string) (bool, error) {
	if r, ok := c.primary.(Recognizer); ok && !r.Recognizes(encodedHash) {
		return true, nil
	}
	u, ok := c.primary.(Upgrader)
	if !ok {
		return false, nil
	}
	return u.NeedsUpgrade(encodedHash)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
