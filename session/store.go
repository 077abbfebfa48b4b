package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps any Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned for unknown and expired sessions alike.
	ErrNotFound = errors.New("session not found")
	// ErrContended is returned when an update keeps losing optimistic-lock races.
	ErrContended = errors.New("session update contended")
)

const maxUpdateRetries = 4

// Store persists sessions in Redis under "<prefix>:<id>".
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a [Store] backed by rdb.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  rdb,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) ttl(sess *Session) time.Duration {
	return time.Unix(sess.ExpiresAt, 0).Sub(s.now())
}

// Save writes sess with a TTL that ends at sess.ExpiresAt. The write has
// completed when Save returns. Saving an already expired session removes it
// and returns [ErrNotFound].
func (s *Store) Save(ctx context.Context, sess *Session) error {
	ttl := s.ttl(sess)
	if ttl <= 0 {
		if err := s.Delete(ctx, sess.ID); err != nil {
			return err
		}
		return ErrNotFound
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. Expired entries that Redis has not yet evicted are
// deleted and reported as [ErrNotFound].
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.ID = sessionID

	if s.ttl(sess) <= 0 {
		_ = s.Delete(ctx, sessionID)
		return nil, ErrNotFound
	}

	return sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rename moves a session to newID, keeping its payload and remaining TTL.
// The old id stops resolving in the same transaction.
func (s *Store) Rename(ctx context.Context, sessionID, newID string) error {
	if sessionID == "" || newID == "" {
		return ErrNotFound
	}
	key := s.key(sessionID)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		var renamed *redis.BoolCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			renamed = pipe.RenameNX(ctx, key, s.key(newID))
			return nil
		})
		if err != nil {
			return err
		}
		if !renamed.Val() {
			return errIDTaken
		}
		return nil
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, errIDTaken):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return ErrContended
	default:
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
}

var errIDTaken = errors.New("session id already in use")

// Update applies fn to the stored session under WATCH and writes the result
// back. fn may return an error to abort without writing. Concurrent writers
// to the same session cause a bounded number of retries.
func (s *Store) Update(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	key := s.key(sessionID)

	for i := 0; i < maxUpdateRetries; i++ {
		var updated *Session
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return err
			}
			sess.ID = sessionID

			ttl := s.ttl(sess)
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrNotFound
			}

			if err := fn(sess); err != nil {
				return err
			}

			encoded, err := Encode(sess)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			if err != nil {
				return err
			}
			updated = sess
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrNotFound
			}
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
				return nil, err
			}
			var abort abortError
			if errors.As(err, &abort) {
				return nil, abort.err
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return updated, nil
	}

	return nil, ErrContended
}

// abortError carries a caller error out of an Update callback untouched.
type abortError struct{ err error }

func (a abortError) Error() string { return a.err.Error() }
func (a abortError) Unwrap() error { return a.err }

// Abort marks err as a deliberate refusal from an Update callback so that it is
// returned as-is instead of being reported as a Redis failure.
func Abort(err error) error {
	return abortError{err: err}
}
