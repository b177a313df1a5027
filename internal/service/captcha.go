package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/storage"
	"github.com/rryowa/blog_auth/internal/util"
)

const (
	captchaAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	MsgCaptchaRequired = "captcha is required"
	MsgCaptchaNotFound = "captcha not found or expired"
	MsgCaptchaExpired  = "captcha expired"
	MsgCaptchaMismatch = "captcha mismatch"
)

// CaptchaGate verifies a single-use challenge. A false result comes with a
// human readable reason.
type CaptchaGate interface {
	Verify(ctx context.Context, key, value string) (bool, string, error)
}

type Challenge struct {
	Key       string
	ImageURL  string
	ExpiresAt time.Time
}

type CaptchaService struct {
	repo   storage.CaptchaRepository
	ttl    time.Duration
	length int
	imgURL string
	log    *zap.SugaredLogger
}

func NewCaptchaService(repo storage.CaptchaRepository, cfg *util.CaptchaConfig, log *zap.SugaredLogger) *CaptchaService {
	return &CaptchaService{
		repo:   repo,
		ttl:    cfg.TTL,
		length: cfg.Length,
		imgURL: cfg.ImageBaseURL,
		log:    log,
	}
}

// Generate stores a new challenge. Rendering the image is up to the external
// renderer behind ImageURL.
func (s *CaptchaService) Generate(ctx context.Context) (*Challenge, error) {
	response, err := randomString(s.length)
	if err != nil {
		return nil, fmt.Errorf("generate captcha: %w", err)
	}
	key := uuid.NewString()

	stored, err := s.repo.CreateCaptcha(ctx, key, strings.ToLower(response), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("generate captcha: %w", err)
	}
	return &Challenge{
		Key:       key,
		ImageURL:  s.imgURL + "/" + key,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Verify is case-insensitive. Only a successful check deletes the challenge.
func (s *CaptchaService) Verify(ctx context.Context, key, value string) (bool, string, error) {
	key = strings.TrimSpace(key)
	value = strings.ToLower(strings.TrimSpace(value))
	if key == "" || value == "" {
		return false, MsgCaptchaRequired, nil
	}

	ok, err := s.repo.ConsumeCaptcha(ctx, key, value)
	if err != nil {
		return false, "", fmt.Errorf("verify captcha: %w", err)
	}
	if ok {
		return true, "", nil
	}

	expired, err := s.repo.CaptchaExpired(ctx, key)
	switch {
	case errors.Is(err, storage.ErrCaptchaNotFound):
		return false, MsgCaptchaNotFound, nil
	case err != nil:
		return false, "", fmt.Errorf("verify captcha: %w", err)
	case expired:
		return false, MsgCaptchaExpired, nil
	default:
		return false, MsgCaptchaMismatch, nil
	}
}

func (s *CaptchaService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredCaptcha(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup captcha: %w", err)
	}
	return n, nil
}

func randomString(n int) (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(captchaAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(captchaAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
