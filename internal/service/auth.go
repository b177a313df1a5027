package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage"
)

const (
	msgInvalidCredentials = "invalid username or password"
	msgInvalidAnswer      = "invalid username or security answer"
)

type AuthDeps struct {
	Codec          *TokenCodec
	RefreshTokens  *RefreshTokens
	Users          storage.UserRepository
	Lockout        *Lockout
	Captcha        CaptchaGate
	Tickets        storage.TicketStore
	Clock          Clock
	Metrics        *Metrics
	ResetTicketTTL time.Duration
}

// AuthService composes tokens, the refresh store, lockout and captcha into
// the login, refresh, logout and gated action flows.
type AuthService struct {
	codec     *TokenCodec
	refresh   *RefreshTokens
	users     storage.UserRepository
	lockout   *Lockout
	captcha   CaptchaGate
	tickets   storage.TicketStore
	clock     Clock
	metrics   *Metrics
	ticketTTL time.Duration
	log       *zap.SugaredLogger
}

func NewAuthService(deps AuthDeps, log *zap.SugaredLogger) *AuthService {
	return &AuthService{
		codec:     deps.Codec,
		refresh:   deps.RefreshTokens,
		users:     deps.Users,
		lockout:   deps.Lockout,
		captcha:   deps.Captcha,
		tickets:   deps.Tickets,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
		ticketTTL: deps.ResetTicketTTL,
		log:       log,
	}
}

type LoginInput struct {
	Username     string
	Password     string
	CaptchaKey   string
	CaptchaValue string
	ClientIP     string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         models.UserInfo
}

type RefreshResult struct {
	AccessToken string
	User        models.UserInfo
}

// GateInput identifies one attempt at a captcha guarded action.
type GateInput struct {
	Namespace    string
	Identifier   string
	CaptchaKey   string
	CaptchaValue string
}

// LoginIdentifier keys login and password recovery lockouts: the username
// when one was given, else the client address.
func LoginIdentifier(username, clientIP string) string {
	if username = strings.TrimSpace(username); username != "" {
		return "user_" + username
	}
	return "ip_" + clientIP
}

// Login checks the lock before looking at the credentials at all.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	identifier := LoginIdentifier(in.Username, in.ClientIP)

	status, err := s.lockout.Check(ctx, NamespaceLogin, identifier)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		s.metrics.Logins.WithLabelValues("locked").Inc()
		return nil, &LockedError{Namespace: NamespaceLogin, RetryAfter: status.RetryAfter}
	}

	policy, err := s.lockout.Policy(NamespaceLogin)
	if err != nil {
		return nil, err
	}
	if policy.RequireCaptcha {
		ok, reason, err := s.captcha.Verify(ctx, in.CaptchaKey, in.CaptchaValue)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &AttemptError{Namespace: NamespaceLogin, Field: "captcha", Reason: reason, Remaining: status.Remaining}
		}
	}

	username := strings.TrimSpace(in.Username)
	if err := requireFields("username", username, "password", in.Password); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("login: %w", err)
	}
	valid := false
	if user != nil {
		if valid, err = CheckPassword(user.PasswordHash, in.Password); err != nil {
			s.log.Warnw("Unusable password hash", "userID", user.ID, "error", err)
		}
	}
	if !valid {
		s.metrics.Logins.WithLabelValues("failure").Inc()
		return nil, s.failAttempt(ctx, NamespaceLogin, identifier, "password", msgInvalidCredentials)
	}

	if err := s.lockout.Clear(ctx, NamespaceLogin, identifier); err != nil {
		return nil, err
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	access, err := s.codec.Mint(KindAccess, user.ID, user.Username, s.codec.AccessTTL(), now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Mint(KindRefresh, user.ID, user.Username, s.codec.RefreshTTL(), now)
	if err != nil {
		return nil, err
	}
	if _, err := s.refresh.Store(ctx, user.ID, refresh); err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues("success").Inc()
	s.log.Infow("User logged in", "userID", user.ID)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         models.UserInfo{ID: user.ID, Username: user.Username},
	}, nil
}

// Refresh mints a new access token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*RefreshResult, error) {
	result, err := s.refreshAccess(ctx, raw)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.Refreshes.WithLabelValues(outcome).Inc()
	return result, err
}

func (s *AuthService) refreshAccess(ctx context.Context, raw string) (*RefreshResult, error) {
	if raw == "" {
		return nil, ErrMissingRefreshToken
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	claims, err := s.codec.VerifyRefresh(raw, now)
	if errors.Is(err, ErrInvalidTokenType) {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	record, err := s.refresh.Verify(ctx, claims.UserID, raw)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.Mint(KindAccess, claims.UserID, claims.Username, s.codec.AccessTTL(), now)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Touch(ctx, record); err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken: access,
		User:        models.UserInfo{ID: claims.UserID, Username: claims.Username},
	}, nil
}

// Logout revokes what it can find and never fails. An unreachable store looks
// the same as an already ended session to the client.
func (s *AuthService) Logout(ctx context.Context, refreshCookie, bearer string) {
	if refreshCookie != "" {
		if now, err := s.clock.Now(ctx); err == nil {
			if claims, err := s.codec.VerifyRefresh(refreshCookie, now); err == nil {
				s.logRevoke(s.refresh.RevokeToken(ctx, claims.UserID, refreshCookie))
				return
			}
		}
		if claims, ok := s.codec.DecodeUnsafe(refreshCookie); ok {
			s.logRevoke(s.refresh.RevokeToken(ctx, claims.UserID, refreshCookie))
			return
		}
		s.logRevoke(s.refresh.RevokeByRawToken(ctx, refreshCookie))
		return
	}

	// Only a live access token may end the session it belongs to.
	if bearer != "" {
		now, err := s.clock.Now(ctx)
		if err != nil {
			s.log.Warnw("Logout could not read the clock", "error", err)
			return
		}
		if claims, err := s.codec.VerifyAccess(bearer, now); err == nil {
			s.logRevoke(s.refresh.Revoke(ctx, claims.UserID))
		}
	}
}

func (s *AuthService) logRevoke(err error) {
	if err != nil {
		s.log.Warnw("Logout could not revoke refresh token", "error", err)
	}
}

// Authenticate turns a bearer access token into a principal.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (models.Principal, error) {
	if bearer == "" {
		return models.Principal{}, ErrMissingToken
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return models.Principal{}, fmt.Errorf("authenticate: %w", err)
	}
	claims, err := s.codec.VerifyAccess(bearer, now)
	if errors.Is(err, ErrInvalidTokenType) {
		return models.Principal{}, err
	} else if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return models.Principal{
		UserID:          claims.UserID,
		Username:        claims.Username,
		IsAuthenticated: true,
	}, nil
}

func (s *AuthService) RequireAdmin(ctx context.Context, p models.Principal) error {
	if !p.IsAuthenticated {
		return ErrAuthenticationRequired
	}
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrAdminRequired
	} else if err != nil {
		return fmt.Errorf("require admin: %w", err)
	}
	if !user.IsAdmin {
		return ErrAdminRequired
	}
	return nil
}

// Gate runs the lockout and captcha checks of a guarded action. A nil result
// means the action may proceed and the failure counter was cleared.
func (s *AuthService) Gate(ctx context.Context, in GateInput) error {
	status, err := s.lockout.Check(ctx, in.Namespace, in.Identifier)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return &LockedError{Namespace: in.Namespace, RetryAfter: status.RetryAfter}
	}

	policy, err := s.lockout.Policy(in.Namespace)
	if err != nil {
		return err
	}
	if policy.RequireCaptcha {
		ok, reason, err := s.captcha.Verify(ctx, in.CaptchaKey, in.CaptchaValue)
		if err != nil {
			return err
		}
		if !ok {
			return s.failAttempt(ctx, in.Namespace, in.Identifier, "captcha", reason)
		}
	}

	return s.lockout.Clear(ctx, in.Namespace, in.Identifier)
}

// SecurityQuestion is the first step of password recovery.
func (s *AuthService) SecurityQuestion(ctx context.Context, username, clientIP string) (string, error) {
	username = strings.TrimSpace(username)
	if err := requireFields("username", username); err != nil {
		return "", err
	}
	if err := s.ensureUnlocked(ctx, NamespaceForgotPassword, LoginIdentifier(username, clientIP)); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", ErrUserNotFound
	} else if err != nil {
		return "", fmt.Errorf("security question: %w", err)
	}
	return user.SecurityQuestion, nil
}

// AnswerInput is one attempt at the security answer of password recovery.
type AnswerInput struct {
	Username     string
	Answer       string
	CaptchaKey   string
	CaptchaValue string
	ClientIP     string
}

// VerifySecurityAnswer returns a single-use reset ticket for the user.
// Captcha failures, wrong answers and unknown users all count against the
// forgot-password policy.
func (s *AuthService) VerifySecurityAnswer(ctx context.Context, in AnswerInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	answer := strings.TrimSpace(in.Answer)
	identifier := LoginIdentifier(username, in.ClientIP)
	if err := s.ensureUnlocked(ctx, NamespaceForgotPassword, identifier); err != nil {
		return "", err
	}

	policy, err := s.lockout.Policy(NamespaceForgotPassword)
	if err != nil {
		return "", err
	}
	if policy.RequireCaptcha {
		ok, reason, err := s.captcha.Verify(ctx, in.CaptchaKey, in.CaptchaValue)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", s.failAttempt(ctx, NamespaceForgotPassword, identifier, "captcha", reason)
		}
	}

	if err := requireFields("username", username, "answer", answer); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return "", fmt.Errorf("verify security answer: %w", err)
	}
	valid := false
	if user != nil {
		if valid, err = CheckPassword(user.SecurityAnswerHash, answer); err != nil {
			s.log.Warnw("Unusable security answer hash", "userID", user.ID, "error", err)
		}
	}
	if !valid {
		return "", s.failAttempt(ctx, NamespaceForgotPassword, identifier, "answer", msgInvalidAnswer)
	}

	if err := s.lockout.Clear(ctx, NamespaceForgotPassword, identifier); err != nil {
		return "", err
	}
	ticket := uuid.NewString()
	if err := s.tickets.SaveResetTicket(ctx, ticket, user.Username, s.ticketTTL); err != nil {
		return "", fmt.Errorf("verify security answer: %w", err)
	}
	return ticket, nil
}

// ResetPassword consumes the ticket, stores the new hash and ends the user's
// current session.
func (s *AuthService) ResetPassword(ctx context.Context, username, ticket, newPassword string) error {
	username = strings.TrimSpace(username)
	if err := requireFields("username", username, "reset_ticket", ticket, "password", strings.TrimSpace(newPassword)); err != nil {
		return err
	}

	owner, err := s.tickets.TakeResetTicket(ctx, ticket)
	if errors.Is(err, storage.ErrTicketNotFound) {
		return ErrInvalidResetTicket
	} else if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if owner != username {
		return ErrInvalidResetTicket
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.refresh.Revoke(ctx, user.ID); err != nil {
		return err
	}

	s.log.Infow("Password reset", "userID", user.ID)
	return nil
}

func (s *AuthService) ensureUnlocked(ctx context.Context, namespace, identifier string) error {
	status, err := s.lockout.Check(ctx, namespace, identifier)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return &LockedError{Namespace: namespace, RetryAfter: status.RetryAfter}
	}
	return nil
}

// failAttempt records a failure and returns the error the caller reports.
func (s *AuthService) failAttempt(ctx context.Context, namespace, identifier, field, reason string) error {
	f, err := s.lockout.RecordFailure(ctx, namespace, identifier)
	if err != nil {
		return err
	}
	if f.Locked {
		return &LockedError{Namespace: namespace, RetryAfter: f.RetryAfter}
	}
	return &AttemptError{Namespace: namespace, Field: field, Reason: reason, Remaining: f.Remaining}
}
