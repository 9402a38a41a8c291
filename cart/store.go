package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Store persists cart sessions keyed by customer id.
type Store interface {
	// Resolve returns the stored session, or a new empty one that is not persisted.
	Resolve(ctx context.Context, customerID string) (*Session, error)
	// Persist writes s and restarts its TTL.
	Persist(ctx context.Context, s *Session) error
	// Update runs fn against the current session and persists the result as one atomic
	// step for customerID. When fn fails its error is returned unwrapped and nothing is written.
	Update(ctx context.Context, customerID string, fn func(*Session) error) (*Session, error)
	// Delete drops the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, customerID string) error
}

const defaultUpdateRetries = 16

// RedisStore keeps one JSON blob per customer under "<prefix>:<customerID>".
// Update uses WATCH/MULTI so concurrent writers for the same customer retry
// instead of overwriting each other.
type RedisStore struct {
	redis      redis.UniversalClient
	prefix     string
	ttl        time.Duration
	sliding    bool
	maxRetries int
	loads      singleflight.Group
	now        func() time.Time
}

// NewRedisStore creates a [RedisStore]. ttl is the idle lifetime of a cart; when sliding
// is set every read restarts it.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration, sliding bool) *RedisStore {
	return &RedisStore{
		redis:      client,
		prefix:     prefix,
		ttl:        ttl,
		sliding:    sliding,
		maxRetries: defaultUpdateRetries,
		now:        time.Now,
	}
}

func (s *RedisStore) key(customerID string) string {
	return s.prefix + ":" + customerID
}

// Resolve loads the session for customerID. Concurrent loads of the same id share one
// round trip; every caller gets its own copy.
//
//	Performance: 1 GET, plus 1 EXPIRE when sliding.
func (s *RedisStore) Resolve(ctx context.Context, customerID string) (*Session, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}
	key := s.key(customerID)

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		sess, err := s.get(ctx, s.redis, key)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, nil
		}
		if s.sliding && s.ttl > 0 {
			if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewSession(customerID, s.now()), nil
	}
	return v.(*Session).Clone(), nil
}

// Persist writes sess with a fresh TTL.
//
//	Performance: 1 SET.
func (s *RedisStore) Persist(ctx context.Context, sess *Session) error {
	data, err := s.stamp(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.CustomerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

type mutationError struct {
	err error
}

func (e *mutationError) Error() string { return e.err.Error() }
func (e *mutationError) Unwrap() error { return e.err }

// Update applies fn under WATCH on the session key, retrying when another writer
// commits first.
//
//	Performance: WATCH + GET + MULTI/SET/EXEC per attempt.
func (s *RedisStore) Update(ctx context.Context, customerID string, fn func(*Session) error) (*Session, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}
	key := s.key(customerID)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var result *Session
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			sess, err := s.get(ctx, tx, key)
			if err != nil {
				return err
			}
			if sess == nil {
				sess = NewSession(customerID, s.now())
			}
			if err := fn(sess); err != nil {
				return &mutationError{err: err}
			}

			data, err := s.stamp(sess)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = sess
			return nil
		}, key)

		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		var mErr *mutationError
		if errors.As(err, &mErr) {
			return nil, mErr.err
		}
		if errors.Is(err, ErrSessionCorrupt) || errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil, ErrUpdateConflict
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, customerID string) error {
	key := s.key(customerID)
	s.loads.Forget(key)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping reports the round-trip latency to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// get returns (nil, nil) when the key does not exist.
func (s *RedisStore) get(ctx context.Context, c getter, key string) (*Session, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

func (s *RedisStore) stamp(sess *Session) ([]byte, error) {
	now := s.now()
	if sess.CreatedAt == 0 {
		sess.CreatedAt = now.Unix()
	}
	sess.ExpiresAt = now.Add(s.ttl).Unix()
	return Encode(sess)
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
