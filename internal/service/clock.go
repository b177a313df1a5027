package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock is the time authority. Production wires it to the database clock.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// ClockFunc adapts a plain function, mostly for tests.
type ClockFunc func() time.Time

func (f ClockFunc) Now(context.Context) (time.Time, error) { return f(), nil }

// SyncedClock follows a remote clock without a round trip per call. It keeps
// the offset between the remote and the local monotonic clock and resamples
// it at most once per interval.
type SyncedClock struct {
	source   Clock
	interval time.Duration
	local    func() time.Time
	log      *zap.SugaredLogger

	mu       sync.Mutex
	offset   time.Duration
	syncedAt time.Time
	synced   bool
}

func NewSyncedClock(source Clock, interval time.Duration, log *zap.SugaredLogger) *SyncedClock {
	return &SyncedClock{
		source:   source,
		interval: interval,
		local:    time.Now,
		log:      log,
	}
}

func (c *SyncedClock) Now(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	stale := !c.synced || c.local().Sub(c.syncedAt) >= c.interval
	c.mu.Unlock()

	if stale {
		if err := c.Sync(ctx); err != nil {
			c.mu.Lock()
			synced := c.synced
			c.mu.Unlock()
			if !synced {
				return time.Time{}, err
			}
			c.log.Warnw("Clock resync failed, keeping previous offset", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local().Add(c.offset), nil
}

// Sync samples the source clock and stores the new offset.
func (c *SyncedClock) Sync(ctx context.Context) error {
	before := c.local()
	remote, err := c.source.Now(ctx)
	if err != nil {
		return fmt.Errorf("sync clock: %w", err)
	}
	after := c.local()
	// assume the remote stamped its time halfway through the round trip
	mid := before.Add(after.Sub(before) / 2)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = remote.Sub(mid)
	c.syncedAt = after
	c.synced = true
	return nil
}

// Offset is the last measured remote minus local difference.
func (c *SyncedClock) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}
