package memory

import (
	"context"
	"sync"
)

type Comment struct {
	ID        int64
	ArticleID int64
	UserID    int64
	Content   string
}

type Article struct {
	ID       int64
	AuthorID int64
	Title    string
	Content  string
}

type ContentRepository struct {
	mu       sync.Mutex
	Comments []Comment
	Articles []Article
}

func NewContentRepository() *ContentRepository {
	return &ContentRepository{}
}

func (r *ContentRepository) CreateComment(_ context.Context, articleID, userID int64, content string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Comment{ID: int64(len(r.Comments) + 1), ArticleID: articleID, UserID: userID, Content: content}
	r.Comments = append(r.Comments, c)
	return c.ID, nil
}

func (r *ContentRepository) CreateArticle(_ context.Context, authorID int64, title, content string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := Article{ID: int64(len(r.Articles) + 1), AuthorID: authorID, Title: title, Content: content}
	r.Articles = append(r.Articles, a)
	return a.ID, nil
}
