package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rryowa/blog_auth/internal/storage"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStorage(db), mock
}

func TestReplaceRefreshToken_DeletesThenInserts(t *testing.T) {
	s, mock := newMockStorage(t)
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WithArgs(int64(7), "abc", float64(3600)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expires_at", "created_at"}).AddRow(int64(11), expires, created))
	mock.ExpectCommit()

	token, err := s.ReplaceRefreshToken(context.Background(), 7, "abc", time.Hour)
	if err != nil {
		t.Fatalf("ReplaceRefreshToken failed: %v", err)
	}
	if token.ID != 11 || token.UserID != 7 || token.TokenHash != "abc" {
		t.Fatalf("unexpected token record: %+v", token)
	}
	if !token.ExpiresAt.Equal(expires) {
		t.Fatalf("expected expires_at %v, got %v", expires, token.ExpiresAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceRefreshToken_RollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := s.ReplaceRefreshToken(context.Background(), 7, "abc", time.Hour); err == nil {
		t.Fatal("expected error when insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindRefreshToken(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "user_id", "token_hash", "expires_at", "created_at", "last_used_at", "valid"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`)).
		WithArgs(int64(3), "h").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), int64(3), "h", now.Add(time.Hour), now, nil, true))

	token, valid, err := s.FindRefreshToken(context.Background(), 3, "h")
	if err != nil {
		t.Fatalf("FindRefreshToken failed: %v", err)
	}
	if !valid {
		t.Fatal("expected token to be valid")
	}
	if token.LastUsedAt != nil {
		t.Fatalf("expected nil last_used_at, got %v", token.LastUsedAt)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`)).
		WithArgs(int64(3), "h").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), int64(3), "h", now, now.Add(-time.Hour), now, false))

	token, valid, err = s.FindRefreshToken(context.Background(), 3, "h")
	if err != nil {
		t.Fatalf("FindRefreshToken failed: %v", err)
	}
	if valid {
		t.Fatal("expected expired token to be reported invalid")
	}
	if token.LastUsedAt == nil || !token.LastUsedAt.Equal(now) {
		t.Fatalf("expected last_used_at %v, got %v", now, token.LastUsedAt)
	}
}

func TestFindRefreshToken_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`)).
		WithArgs(int64(3), "h").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := s.FindRefreshToken(context.Background(), 3, "h")
	if !errors.Is(err, storage.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}

func TestTouchRefreshToken(t *testing.T) {
	s, mock := newMockStorage(t)
	query := regexp.QuoteMeta(`UPDATE refresh_tokens SET last_used_at = NOW() WHERE id = $1 AND expires_at > NOW()`)

	mock.ExpectExec(query).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := s.TouchRefreshToken(context.Background(), 5)
	if err != nil || !ok {
		t.Fatalf("expected touch to succeed, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec(query).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = s.TouchRefreshToken(context.Background(), 5)
	if err != nil || ok {
		t.Fatalf("expected touch on expired row to report false, got ok=%v err=%v", ok, err)
	}
}

func TestDeleteExpiredRefreshTokens(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE expires_at <= NOW()`)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.DeleteExpiredRefreshTokens(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpiredRefreshTokens failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 deleted rows, got %d", n)
	}
}
