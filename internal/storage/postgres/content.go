package postgres

import (
	"context"
	"fmt"

	"github.com/rryowa/blog_auth/internal/storage"
)

// ContentRepository writes into the blog tables owned by the content service.
type ContentRepository struct {
	db storage.DBTX
}

func NewContentRepository(db storage.DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) CreateComment(ctx context.Context, articleID, userID int64, content string) (int64, error) {
	var id int64
	query := `INSERT INTO article_comments (article_id, user_id, content, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, articleID, userID, content).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert comment: %w", err)
	}
	return id, nil
}

func (r *ContentRepository) CreateArticle(ctx context.Context, authorID int64, title, content string) (int64, error) {
	var id int64
	query := `INSERT INTO blog_articles (title, content, author_id, published_at) VALUES ($1, $2, $3, NOW()) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, title, content, authorID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}
	return id, nil
}
