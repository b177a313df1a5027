package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rryowa/blog_auth/internal/models"
)

// ContentWriter persists the blog content the gated actions produce.
type ContentWriter interface {
	CreateComment(ctx context.Context, articleID, userID int64, content string) (int64, error)
	CreateArticle(ctx context.Context, authorID int64, title, content string) (int64, error)
}

type CommentInput struct {
	ArticleID    int64
	Content      string
	CaptchaKey   string
	CaptchaValue string
}

type ArticleInput struct {
	Title        string
	Content      string
	CaptchaKey   string
	CaptchaValue string
}

// ContentService runs comment and article creation behind their lockout gates.
type ContentService struct {
	auth   *AuthService
	writer ContentWriter
}

func NewContentService(auth *AuthService, writer ContentWriter) *ContentService {
	return &ContentService{auth: auth, writer: writer}
}

func (s *ContentService) Comment(ctx context.Context, p models.Principal, in CommentInput) (int64, error) {
	if !p.IsAuthenticated {
		return 0, ErrAuthenticationRequired
	}
	if err := s.auth.Gate(ctx, GateInput{
		Namespace:    NamespaceComment,
		Identifier:   strconv.FormatInt(p.UserID, 10),
		CaptchaKey:   in.CaptchaKey,
		CaptchaValue: in.CaptchaValue,
	}); err != nil {
		return 0, err
	}

	content := strings.TrimSpace(in.Content)
	if err := requireFields("content", content); err != nil {
		return 0, err
	}
	id, err := s.writer.CreateComment(ctx, in.ArticleID, p.UserID, content)
	if err != nil {
		return 0, fmt.Errorf("create comment: %w", err)
	}
	return id, nil
}

func (s *ContentService) Publish(ctx context.Context, p models.Principal, in ArticleInput) (int64, error) {
	if !p.IsAuthenticated {
		return 0, ErrAuthenticationRequired
	}
	if err := s.auth.Gate(ctx, GateInput{
		Namespace:    NamespacePublish,
		Identifier:   strconv.FormatInt(p.UserID, 10),
		CaptchaKey:   in.CaptchaKey,
		CaptchaValue: in.CaptchaValue,
	}); err != nil {
		return 0, err
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := requireFields("title", title, "content", content); err != nil {
		return 0, err
	}
	id, err := s.writer.CreateArticle(ctx, p.UserID, title, content)
	if err != nil {
		return 0, fmt.Errorf("create article: %w", err)
	}
	return id, nil
}
