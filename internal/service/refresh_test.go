package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rryowa/blog_auth/internal/storage/memory"
)

func TestHashToken(t *testing.T) {
	h := HashToken("raw")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h != HashToken("raw") || h == HashToken("raw2") {
		t.Fatal("hash must be deterministic and input dependent")
	}
}

func TestRefreshTokens_ExpiryFollowsStoreClock(t *testing.T) {
	clock := newFakeClock()
	repo := memory.NewRefreshTokenRepository(clock.time, testLogger())
	r := NewRefreshTokens(repo, time.Hour, testLogger())
	ctx := context.Background()

	stored, err := r.Store(ctx, 1, "raw-token")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if stored.TokenHash != HashToken("raw-token") || !stored.ExpiresAt.Equal(testEpoch.Add(time.Hour)) {
		t.Fatalf("unexpected record %+v", stored)
	}

	record, err := r.Verify(ctx, 1, "raw-token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if _, err := r.Verify(ctx, 2, "raw-token"); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("token of another user: expected ErrRefreshTokenInvalid, got %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := r.Verify(ctx, 1, "raw-token"); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expired record: expected ErrRefreshTokenInvalid, got %v", err)
	}
	if repo.Len() != 1 {
		t.Fatal("Verify must not delete expired records")
	}
	if err := r.Touch(ctx, record); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("Touch after expiry: expected ErrRefreshTokenExpired, got %v", err)
	}

	n, err := r.SweepExpired(ctx)
	if err != nil || n != 1 || repo.Len() != 0 {
		t.Fatalf("SweepExpired: n=%d err=%v left=%d", n, err, repo.Len())
	}
}

func TestRefreshTokens_Revoke(t *testing.T) {
	clock := newFakeClock()
	repo := memory.NewRefreshTokenRepository(clock.time, testLogger())
	r := NewRefreshTokens(repo, time.Hour, testLogger())
	ctx := context.Background()

	r.Store(ctx, 1, "a")
	r.Store(ctx, 2, "b")
	r.Store(ctx, 3, "c")

	if err := r.RevokeToken(ctx, 1, "wrong"); err != nil || repo.Len() != 3 {
		t.Fatalf("RevokeToken with wrong raw must keep records, err=%v len=%d", err, repo.Len())
	}
	if err := r.RevokeToken(ctx, 1, "a"); err != nil || repo.Len() != 2 {
		t.Fatalf("RevokeToken: err=%v len=%d", err, repo.Len())
	}
	if err := r.RevokeByRawToken(ctx, "b"); err != nil || repo.Len() != 1 {
		t.Fatalf("RevokeByRawToken: err=%v len=%d", err, repo.Len())
	}
	if err := r.Revoke(ctx, 3); err != nil || repo.Len() != 0 {
		t.Fatalf("Revoke: err=%v len=%d", err, repo.Len())
	}
}
