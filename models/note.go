package models

import (
	"context"
	"fmt"
	"time"

	"github.com/fediscus/fediscus/internal/snowflake"
	"gorm.io/gorm"
)

// A Note is a tracked post. A root note has neither ReplyToID nor RootID;
// every reply carries the ID of the root of its thread and the blog the
// thread is about.
type Note struct {
	ID        NoteID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
	AccountID AccountID `gorm:"not null;index"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	URI       string    `gorm:"size:256;uniqueIndex;not null"`
	ReplyToID *NoteID   `gorm:"index"`
	RootID    *NoteID   `gorm:"index"`
	BlogID    BlogID    `gorm:"not null;index"`
	Blog      *Blog     `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Likes     uint32    `gorm:"not null;default:0"`
	Reposts   uint32    `gorm:"not null;default:0"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == 0 {
		n.ID = NoteID(snowflake.Now())
	}
	return nil
}

func (n *Note) primaryKey() uint64 { return uint64(n.ID) }
func (n *Note) clearKey()          { n.ID = 0 }

// IsRoot reports whether the note starts a thread.
func (n *Note) IsRoot() bool {
	return n.ReplyToID == nil && n.RootID == nil
}

func (s *Store) CreateNote(ctx context.Context, authorID AccountID, uri string, replyToID, rootID *NoteID, blogID BlogID) (*Note, error) {
	n := &Note{
		AccountID: authorID,
		URI:       uri,
		ReplyToID: replyToID,
		RootID:    rootID,
		BlogID:    blogID,
	}
	if err := insert(ctx, s.db, "create note", n); err != nil {
		return nil, err
	}
	return reread(s.NoteByURI(ctx, uri))
}

func (s *Store) NoteByID(ctx context.Context, id NoteID) (*Note, error) {
	return first[Note](ctx, s.db, "id = ?", id)
}

func (s *Store) NoteByURI(ctx context.Context, uri string) (*Note, error) {
	return first[Note](ctx, s.db, "uri = ?", uri)
}

// DeleteNoteByID deletes a single note. Replies to it are left in place.
func (s *Store) DeleteNoteByID(ctx context.Context, id NoteID) error {
	return affected("delete note", s.db.WithContext(ctx).Delete(&Note{}, "id = ?", id))
}

func (s *Store) NotesByBlog(ctx context.Context, blogID BlogID, offset, limit int) ([]*Note, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("blog_id = ?", blogID)
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&Note{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var notes []*Note
	err := s.db.WithContext(ctx).Scopes(scope).Preload("Account").Order("id").Offset(offset).Limit(limit).Find(&notes).Error
	return notes, total, err
}

func (s *Store) NoteCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Note{}).Count(&count).Error
	return count, err
}

func (s *Store) LikeNote(ctx context.Context, uri string) error {
	return s.increment(ctx, "likes", uri)
}

func (s *Store) UnlikeNote(ctx context.Context, uri string) error {
	return s.decrement(ctx, "likes", uri)
}

func (s *Store) RepostNote(ctx context.Context, uri string) error {
	return s.increment(ctx, "reposts", uri)
}

func (s *Store) UnrepostNote(ctx context.Context, uri string) error {
	return s.decrement(ctx, "reposts", uri)
}

func (s *Store) increment(ctx context.Context, column, uri string) error {
	return affected("increment "+column, s.db.WithContext(ctx).Model(&Note{}).
		Where("uri = ?", uri).
		UpdateColumn(column, gorm.Expr(column+" + 1")))
}

// decrement lowers the counter, stopping at zero.
func (s *Store) decrement(ctx context.Context, column, uri string) error {
	db := s.db.WithContext(ctx).Model(&Note{}).
		Where("uri = ? AND "+column+" > 0", uri).
		UpdateColumn(column, gorm.Expr(column+" - 1"))
	if db.Error != nil {
		return fmt.Errorf("decrement %s: %w", column, db.Error)
	}
	if db.RowsAffected > 0 {
		return nil
	}
	n, err := s.NoteByURI(ctx, uri)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("decrement %s: %w", column, ErrNotFound)
	}
	return nil
}
