package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage/memory"
	redisstore "github.com/rryowa/blog_auth/internal/storage/redis"
	"github.com/rryowa/blog_auth/internal/util"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testEpoch} }

func (c *fakeClock) Now(context.Context) (time.Time, error) { return c.time(), nil }

func (c *fakeClock) time() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingNotifier struct {
	mu     sync.Mutex
	events []LockoutEvent
}

func (n *countingNotifier) NotifyLockout(e LockoutEvent) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	done := make(chan struct{})
	close(done)
	return done
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func testLockoutConfig() *util.LockoutConfig {
	return &util.LockoutConfig{
		LoginThreshold:    5,
		LoginLockDuration: time.Hour,
		GateThreshold:     5,
		GateLockDuration:  5 * time.Minute,
	}
}

func newTestLockout(t *testing.T, cfg *util.LockoutConfig, notifier LockoutNotifier) (*Lockout, *miniredis.Miniredis, *Metrics) {
	t.Helper()
	mr, client := newTestRedis(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	l := NewLockout(redisstore.NewLockoutStorage(client), DefaultPolicies(cfg), newFakeClock(), metrics, notifier, testLogger())
	return l, mr, metrics
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

const (
	alicePassword = "wonderland"
	aliceAnswer   = "Dinah"
)

type harness struct {
	auth     *AuthService
	content  *ContentService
	codec    *TokenCodec
	clock    *fakeClock
	mr       *miniredis.Miniredis
	tokens   *memory.RefreshTokenRepository
	users    *memory.UserRepository
	captchas *memory.CaptchaRepository
	captcha  *CaptchaService
	writer   *memory.ContentRepository
	metrics  *Metrics
	notifier *countingNotifier
}

func newHarness(t *testing.T, tune ...func(*util.LockoutConfig)) *harness {
	t.Helper()

	cfg := testLockoutConfig()
	for _, f := range tune {
		f(cfg)
	}

	clock := newFakeClock()
	mr, client := newTestRedis(t)
	log := testLogger()
	metrics := NewMetrics(prometheus.NewRegistry())
	notifier := &countingNotifier{}

	users := memory.NewUserRepository(
		models.User{
			ID:                 1,
			Username:           "alice",
			PasswordHash:       mustHash(t, alicePassword),
			SecurityQuestion:   "Name of your cat?",
			SecurityAnswerHash: mustHash(t, aliceAnswer),
		},
		models.User{ID: 2, Username: "root", PasswordHash: mustHash(t, "toor"), IsAdmin: true},
	)
	tokens := memory.NewRefreshTokenRepository(clock.time, log)
	captchas := memory.NewCaptchaRepository(clock.time)
	writer := memory.NewContentRepository()

	tokenCfg := &util.TokenConfig{
		JwtSecretKey: []byte("test-secret"),
		AccessTTL:    time.Hour,
		RefreshTTL:   30 * 24 * time.Hour,
	}
	codec := NewTokenCodec(tokenCfg)
	captcha := NewCaptchaService(captchas, &util.CaptchaConfig{TTL: 5 * time.Minute, Length: 4, ImageBaseURL: "http://img"}, log)
	lockout := NewLockout(redisstore.NewLockoutStorage(client), DefaultPolicies(cfg), clock, metrics, notifier, log)

	auth := NewAuthService(AuthDeps{
		Codec:          codec,
		RefreshTokens:  NewRefreshTokens(tokens, tokenCfg.RefreshTTL, log),
		Users:          users,
		Lockout:        lockout,
		Captcha:        captcha,
		Tickets:        redisstore.NewTicketStorage(client),
		Clock:          clock,
		Metrics:        metrics,
		ResetTicketTTL: 10 * time.Minute,
	}, log)

	return &harness{
		auth:     auth,
		content:  NewContentService(auth, writer),
		codec:    codec,
		clock:    clock,
		mr:       mr,
		tokens:   tokens,
		users:    users,
		captchas: captchas,
		captcha:  captcha,
		writer:   writer,
		metrics:  metrics,
		notifier: notifier,
	}
}

// solveCaptcha issues a challenge and returns its key with the right answer.
func (h *harness) solveCaptcha(t *testing.T) (string, string) {
	t.Helper()
	ch, err := h.captcha.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	answer, ok := h.captchas.Response(ch.Key)
	if !ok {
		t.Fatalf("challenge %s not stored", ch.Key)
	}
	return ch.Key, answer
}

// answer builds a forgot-password attempt for alice with a solved captcha.
func (h *harness) answer(t *testing.T, answer string) AnswerInput {
	t.Helper()
	key, value := h.solveCaptcha(t)
	return AnswerInput{Username: "alice", Answer: answer, CaptchaKey: key, CaptchaValue: value, ClientIP: "10.0.0.1"}
}

func (h *harness) login(t *testing.T) *LoginResult {
	t.Helper()
	res, err := h.auth.Login(context.Background(), LoginInput{Username: "alice", Password: alicePassword, ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res
}
