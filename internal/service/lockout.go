package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/storage"
	"github.com/rryowa/blog_auth/internal/util"
)

const (
	NamespaceLogin          = "login"
	NamespaceForgotPassword = "forgot-password"
	NamespaceComment        = "comment"
	NamespacePublish        = "publish"
)

// Policy parameterizes the lockout engine for one guarded action.
type Policy struct {
	Namespace    string
	Threshold    int
	LockDuration time.Duration
	// CounterTTL is how long an isolated failure is remembered.
	CounterTTL     time.Duration
	RequireCaptcha bool
}

// DefaultPolicies are the four guarded actions of the blog.
func DefaultPolicies(cfg *util.LockoutConfig) []Policy {
	return []Policy{
		{
			Namespace:      NamespaceLogin,
			Threshold:      cfg.LoginThreshold,
			LockDuration:   cfg.LoginLockDuration,
			CounterTTL:     cfg.LoginLockDuration,
			RequireCaptcha: cfg.LoginCaptchaRequired,
		},
		{
			Namespace:      NamespaceForgotPassword,
			Threshold:      cfg.LoginThreshold,
			LockDuration:   cfg.LoginLockDuration,
			CounterTTL:     cfg.LoginLockDuration,
			RequireCaptcha: true,
		},
		{
			Namespace:      NamespaceComment,
			Threshold:      cfg.GateThreshold,
			LockDuration:   cfg.GateLockDuration,
			CounterTTL:     cfg.GateLockDuration,
			RequireCaptcha: true,
		},
		{
			Namespace:      NamespacePublish,
			Threshold:      cfg.GateThreshold,
			LockDuration:   cfg.GateLockDuration,
			CounterTTL:     cfg.GateLockDuration,
			RequireCaptcha: true,
		},
	}
}

type Status struct {
	Allowed    bool
	Reason     string
	Remaining  int
	RetryAfter time.Duration
}

type Failure struct {
	// Count is the counter value before a lock transition; zero when the
	// identifier was already locked and nothing was counted.
	Count      int
	Remaining  int
	Locked     bool
	RetryAfter time.Duration
}

// LockoutNotifier is told about every new lock.
type LockoutNotifier interface {
	NotifyLockout(event LockoutEvent) <-chan struct{}
}

// Lockout is a failure counter with an expiring lock, keyed by namespace and
// identifier. The cache TTLs are authoritative: an elapsed lock is simply gone.
type Lockout struct {
	cache    storage.LockoutCache
	policies map[string]Policy
	clock    Clock
	metrics  *Metrics
	notifier LockoutNotifier
	log      *zap.SugaredLogger
}

func NewLockout(
	cache storage.LockoutCache,
	policies []Policy,
	clock Clock,
	metrics *Metrics,
	notifier LockoutNotifier,
	log *zap.SugaredLogger,
) *Lockout {
	byNamespace := make(map[string]Policy, len(policies))
	for _, p := range policies {
		byNamespace[p.Namespace] = p
	}
	return &Lockout{
		cache:    cache,
		policies: byNamespace,
		clock:    clock,
		metrics:  metrics,
		notifier: notifier,
		log:      log,
	}
}

func (l *Lockout) Policy(namespace string) (Policy, error) {
	p, ok := l.policies[namespace]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrUnknownPolicy, namespace)
	}
	return p, nil
}

func (l *Lockout) Check(ctx context.Context, namespace, identifier string) (Status, error) {
	p, err := l.Policy(namespace)
	if err != nil {
		return Status{}, err
	}

	count, lockTTL, err := l.cache.LockoutState(ctx, namespace, identifier)
	if err != nil {
		return Status{}, fmt.Errorf("check lockout: %w", err)
	}
	if lockTTL > 0 {
		return Status{
			Allowed:    false,
			Reason:     fmt.Sprintf("locked for %s", FormatRetryAfter(lockTTL)),
			RetryAfter: lockTTL,
		}, nil
	}
	return Status{Allowed: true, Remaining: remaining(p.Threshold, count)}, nil
}

func (l *Lockout) RecordFailure(ctx context.Context, namespace, identifier string) (Failure, error) {
	p, err := l.Policy(namespace)
	if err != nil {
		return Failure{}, err
	}

	count, locked, err := l.cache.RecordFailure(ctx, namespace, identifier, p.Threshold, p.CounterTTL, p.LockDuration)
	if err != nil {
		return Failure{}, fmt.Errorf("record lockout failure: %w", err)
	}

	f := Failure{Count: count, Remaining: remaining(p.Threshold, count), Locked: locked}
	if !locked {
		l.metrics.Failures.WithLabelValues(namespace).Inc()
		return f, nil
	}

	if count == 0 {
		_, ttl, err := l.cache.LockoutState(ctx, namespace, identifier)
		if err != nil {
			return Failure{}, fmt.Errorf("check lockout: %w", err)
		}
		f.RetryAfter = ttl
		return f, nil
	}

	f.RetryAfter = p.LockDuration
	l.metrics.Failures.WithLabelValues(namespace).Inc()
	l.metrics.Locks.WithLabelValues(namespace).Inc()
	l.log.Warnw("Identifier locked", "namespace", namespace, "identifier", identifier, "failures", count, "duration", p.LockDuration)

	if l.notifier != nil {
		event := LockoutEvent{Namespace: namespace, Identifier: identifier, Failures: count}
		if now, err := l.clock.Now(ctx); err == nil {
			event.LockedUntil = now.Add(p.LockDuration)
		} else {
			l.log.Warnw("Lock notification without expiry", "namespace", namespace, "error", err)
		}
		l.notifier.NotifyLockout(event)
	}
	return f, nil
}

func (l *Lockout) Clear(ctx context.Context, namespace, identifier string) error {
	if _, err := l.Policy(namespace); err != nil {
		return err
	}
	if err := l.cache.ClearLockout(ctx, namespace, identifier); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

func remaining(threshold, count int) int {
	if r := threshold - count; r > 0 {
		return r
	}
	return 0
}
