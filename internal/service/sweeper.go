package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type refreshSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type captchaCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type clockSyncer interface {
	Sync(ctx context.Context) error
}

// Sweeper periodically deletes expired refresh tokens and captcha challenges.
// Start is idempotent; a failing or panicking tick never stops the loop.
type Sweeper struct {
	interval time.Duration
	tokens   refreshSweeper
	captcha  captchaCleaner
	clock    clockSyncer
	metrics  *Metrics
	log      *zap.SugaredLogger

	once sync.Once
	wg   sync.WaitGroup
}

// NewSweeper accepts a nil clock when there is nothing to resync.
func NewSweeper(
	interval time.Duration,
	tokens refreshSweeper,
	captcha captchaCleaner,
	clock clockSyncer,
	metrics *Metrics,
	log *zap.SugaredLogger,
) *Sweeper {
	return &Sweeper{
		interval: interval,
		tokens:   tokens,
		captcha:  captcha,
		clock:    clock,
		metrics:  metrics,
		log:      log,
	}
}

// Start launches the loop once; later calls do nothing. The loop ends with ctx.
func (s *Sweeper) Start(ctx context.Context) {
	s.once.Do(func() {
		s.wg.Add(1)
		go s.loop(ctx)
		s.log.Infow("Sweeper started", "interval", s.interval)
	})
}

// Wait blocks until a started loop has returned.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and absorbs every error it meets.
func (s *Sweeper) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.SweepErrors.Inc()
			s.log.Errorw("Sweeper tick panicked", "panic", r)
		}
	}()

	if s.clock != nil {
		if err := s.clock.Sync(ctx); err != nil {
			s.metrics.SweepErrors.Inc()
			s.log.Warnw("Clock sync failed", "error", err)
		}
	}

	if n, err := s.tokens.SweepExpired(ctx); err != nil {
		s.metrics.SweepErrors.Inc()
		s.log.Errorw("Refresh token sweep failed", "error", err)
	} else if n > 0 {
		s.metrics.SweptTokens.Add(float64(n))
		s.log.Infow("Expired refresh tokens removed", "count", n)
	}

	if n, err := s.captcha.CleanupExpired(ctx); err != nil {
		s.metrics.SweepErrors.Inc()
		s.log.Errorw("Captcha cleanup failed", "error", err)
	} else if n > 0 {
		s.metrics.SweptCaptchas.Add(float64(n))
		s.log.Infow("Expired captcha challenges removed", "count", n)
	}
}
