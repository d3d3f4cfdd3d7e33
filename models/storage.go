package models

import (
	"context"

	"gorm.io/gorm"
)

// AccountStore persists local and remote actors.
type AccountStore interface {
	// CreateAccount records a remote actor. It fails with ErrAlreadyExists
	// if an account with the same URI exists.
	CreateAccount(ctx context.Context, p *Person) (*Account, error)
	// UpsertAccount inserts or refreshes a remote actor by URI.
	// The local flag of an existing account is never changed.
	UpsertAccount(ctx context.Context, p *Person) (*Account, error)
	// CreateLocalAccount records the relay's own actor.
	CreateLocalAccount(ctx context.Context, p *Person, privateKeyPEM string) (*Account, error)
	AccountByID(ctx context.Context, id AccountID) (*Account, error)
	AccountByURI(ctx context.Context, uri string) (*Account, error)
	// LocalAccount returns the relay's own actor, or ErrNotFound.
	LocalAccount(ctx context.Context) (*Account, error)
	DeleteAccountByID(ctx context.Context, id AccountID) error
}

// FollowStore persists follow edges.
type FollowStore interface {
	CreateFollow(ctx context.Context, accountID, targetID AccountID, uri string, pending bool) (*Follow, error)
	FollowByURI(ctx context.Context, uri string) (*Follow, error)
	FollowByPair(ctx context.Context, accountID, targetID AccountID) (*Follow, error)
	FollowsByAccountID(ctx context.Context, accountID AccountID) ([]*Follow, error)
	MarkFollowConfirmed(ctx context.Context, uri string) error
	DeleteFollowByURI(ctx context.Context, uri string) error
	DeleteFollowByID(ctx context.Context, id FollowID) error
}

// BlogStore persists the blogs being tracked.
type BlogStore interface {
	CreateBlog(ctx context.Context, url string) (*Blog, error)
	BlogByID(ctx context.Context, id BlogID) (*Blog, error)
	BlogByURL(ctx context.Context, url string) (*Blog, error)
	DeleteBlogByID(ctx context.Context, id BlogID) error
}

// NoteStore persists tracked notes.
type NoteStore interface {
	CreateNote(ctx context.Context, authorID AccountID, uri string, replyToID, rootID *NoteID, blogID BlogID) (*Note, error)
	NoteByID(ctx context.Context, id NoteID) (*Note, error)
	NoteByURI(ctx context.Context, uri string) (*Note, error)
	DeleteNoteByID(ctx context.Context, id NoteID) error
	// NotesByBlog returns a page of the notes about a blog, oldest first,
	// with their authors, and the total number of notes about it.
	NotesByBlog(ctx context.Context, blogID BlogID, offset, limit int) ([]*Note, int64, error)
	NoteCount(ctx context.Context) (int64, error)

	LikeNote(ctx context.Context, uri string) error
	UnlikeNote(ctx context.Context, uri string) error
	RepostNote(ctx context.Context, uri string) error
	UnrepostNote(ctx context.Context, uri string) error
}

// Storage is the full set of persistence operations used by the relay.
type Storage interface {
	AccountStore
	FollowStore
	BlogStore
	NoteStore
}

var (
	_ Storage = (*Store)(nil)
	_ Storage = (*MemoryStore)(nil)
)

// Store is a Storage backed by a relational database.
type Store struct {
	db *gorm.DB
}

// NewStorage returns a Store using db. db should be opened with
// TranslateError set so that unique violations are reported as
// gorm.ErrDuplicatedKey.
func NewStorage(db *gorm.DB) *Store {
	return &Store{
		db: db,
	}
}
