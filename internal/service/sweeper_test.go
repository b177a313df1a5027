package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rryowa/blog_auth/internal/storage/memory"
	"github.com/rryowa/blog_auth/internal/util"
)

type flakyTokens struct {
	calls atomic.Int32
}

// SweepExpired panics first, then errors, then succeeds.
func (f *flakyTokens) SweepExpired(context.Context) (int64, error) {
	switch f.calls.Add(1) {
	case 1:
		panic("boom")
	case 2:
		return 0, errors.New("db down")
	default:
		return 2, nil
	}
}

type noopCaptcha struct{}

func (noopCaptcha) CleanupExpired(context.Context) (int64, error) { return 0, nil }

func TestSweeper_RunOnceRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	log := testLogger()
	tokens := memory.NewRefreshTokenRepository(clock.time, log)
	captchas := memory.NewCaptchaRepository(clock.time)
	metrics := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	refresh := NewRefreshTokens(tokens, time.Hour, log)
	refresh.Store(ctx, 1, "old")
	captcha := NewCaptchaService(captchas, &util.CaptchaConfig{TTL: time.Minute, Length: 4}, log)
	captcha.Generate(ctx)

	clock.Advance(2 * time.Minute)
	refresh.Store(ctx, 2, "fresh")
	captcha.Generate(ctx)

	clock.Advance(59 * time.Minute)
	NewSweeper(time.Minute, refresh, captcha, nil, metrics, log).RunOnce(ctx)

	if tokens.Len() != 1 {
		t.Fatalf("expected only the fresh refresh token left, got %d", tokens.Len())
	}
	if v := testutil.ToFloat64(metrics.SweptTokens); v != 1 {
		t.Fatalf("expected 1 swept token, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.SweptCaptchas); v != 2 {
		t.Fatalf("expected 2 swept captchas, got %v", v)
	}
}

func TestSweeper_SurvivesFailingTicks(t *testing.T) {
	tokens := &flakyTokens{}
	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewSweeper(5*time.Millisecond, tokens, noopCaptcha{}, nil, metrics, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for tokens.calls.Load() < 3 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("sweeper stopped after %d ticks", tokens.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Wait()

	if v := testutil.ToFloat64(metrics.SweepErrors); v < 2 {
		t.Fatalf("expected the panic and the error counted, got %v", v)
	}
}

type countingSyncer struct{ calls atomic.Int32 }

func (c *countingSyncer) Sync(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestSweeper_ResyncsClock(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewSweeper(time.Minute, &flakyTokens{}, noopCaptcha{}, syncer, NewMetrics(prometheus.NewRegistry()), testLogger())

	s.RunOnce(context.Background())

	if syncer.calls.Load() != 1 {
		t.Fatalf("expected one clock sync, got %d", syncer.calls.Load())
	}
}
