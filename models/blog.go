package models

import (
	"context"
	"time"

	"github.com/fediscus/fediscus/internal/snowflake"
	"gorm.io/gorm"
)

// A Blog is a web page whose fediverse discussion is being tracked.
type Blog struct {
	ID        BlogID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt time.Time
	URL       string `gorm:"size:512;uniqueIndex;not null"`
}

func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	if b.ID == 0 {
		b.ID = BlogID(snowflake.Now())
	}
	return nil
}

func (b *Blog) primaryKey() uint64 { return uint64(b.ID) }
func (b *Blog) clearKey()          { b.ID = 0 }

func (s *Store) CreateBlog(ctx context.Context, url string) (*Blog, error) {
	if err := insert(ctx, s.db, "create blog", &Blog{URL: url}); err != nil {
		return nil, err
	}
	return reread(s.BlogByURL(ctx, url))
}

func (s *Store) BlogByID(ctx context.Context, id BlogID) (*Blog, error) {
	return first[Blog](ctx, s.db, "id = ?", id)
}

func (s *Store) BlogByURL(ctx context.Context, url string) (*Blog, error) {
	return first[Blog](ctx, s.db, "url = ?", url)
}

// DeleteBlogByID deletes the blog and, through foreign keys, the notes about it.
func (s *Store) DeleteBlogByID(ctx context.Context, id BlogID) error {
	return affected("delete blog", s.db.WithContext(ctx).Delete(&Blog{}, "id = ?", id))
}
