// Package lease provides per-job execution leases so that only one
// scheduler instance runs a given job at a time.
package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// DefaultTTL bounds how long a crashed holder can block a job.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "leadradar:job-lease:"

// Locker acquires and releases job leases.
type Locker interface {
	// Acquire returns a release func and true when the lease was taken,
	// or false when another holder has it.
	Acquire(ctx context.Context, jobID string) (release func(), ok bool, err error)
}

// Noop grants every lease. Used when no Redis URL is configured.
type Noop struct{}

// Acquire always succeeds.
func (Noop) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a SET NX PX lease backed by Redis.
type Redis struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// Dial parses redisURL, verifies connectivity and returns a Redis locker.
func Dial(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, eris.Wrap(err, "lease: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "lease: redis ping")
	}
	return NewRedis(client, ttl), nil
}

// Acquire takes the lease for jobID.
func (l *Redis) Acquire(ctx context.Context, jobID string) (func(), bool, error) {
	key := keyPrefix + jobID
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, eris.Wrapf(err, "lease: acquire %s", jobID)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release must run even if the job context was cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(rctx, l.rdb, []string{key}, token) //nolint:errcheck
	}
	return release, true, nil
}

// Close closes the underlying client.
func (l *Redis) Close() error {
	return l.rdb.Close()
}
