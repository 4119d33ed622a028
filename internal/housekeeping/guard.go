// Package housekeeping keeps a delivery agent to one run per day and prunes
// old run logs.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dayLayout = "20060102"

// AlreadyRanError means a run for Day has already been recorded.
type AlreadyRanError struct {
	Day   time.Time
	Where string // Log path or Redis key holding the marker
}

func (e *AlreadyRanError) Error() string {
	return fmt.Sprintf("delivery already ran on %s (marker %s)", e.Day.Format(time.DateOnly), e.Where)
}

// Guard records that today's run has started.
type Guard interface {
	Acquire(ctx context.Context, day time.Time) error
}

// LogPath is the per-day run log. Its existence marks the day as run.
func LogPath(dir, app string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", app, day.Format(dayLayout)))
}

// FileGuard uses the day's log file as the run marker.
type FileGuard struct {
	Dir     string
	AppName string
	Force   bool // Run even when the marker exists
}

// Acquire creates the day's log file, failing if it already exists.
func (g FileGuard) Acquire(ctx context.Context, day time.Time) error {
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := LogPath(g.Dir, g.AppName, day)
	flags := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if g.Force {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return &AlreadyRanError{Day: day, Where: path}
		}
		return fmt.Errorf("failed to create run marker: %w", err)
	}
	return f.Close()
}

// setNXer is the subset of the redis client the guard needs.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisGuard marks the day in Redis so several hosts share one marker.
type RedisGuard struct {
	client  setNXer
	AppName string
	TTL     time.Duration
	Force   bool
}

// NewRedisGuard connects to addr. The returned close function releases the client.
func NewRedisGuard(ctx context.Context, addr, app string, logger *zap.Logger) (*RedisGuard, func() error, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("unable to reach redis at %s: %w", addr, err)
	}
	if logger != nil {
		logger.Debug("connected to redis", zap.String("addr", addr))
	}

	return &RedisGuard{client: client, AppName: app, TTL: 24 * time.Hour}, client.Close, nil
}

// Key is the Redis key holding the marker for day.
func (g *RedisGuard) Key(day time.Time) string {
	return fmt.Sprintf("%s:run:%s", g.AppName, day.Format(dayLayout))
}

// Acquire sets the day's key if absent.
func (g *RedisGuard) Acquire(ctx context.Context, day time.Time) error {
	if g.Force {
		return nil
	}

	key := g.Key(day)
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.TTL).Result()
	if err != nil {
		return fmt.Errorf("failed to set run marker %s: %w", key, err)
	}
	if !ok {
		return &AlreadyRanError{Day: day, Where: key}
	}
	return nil
}
