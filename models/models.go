// Package models holds the persistent state of the relay: accounts, the
// follow edges between them, the blogs being tracked and the notes that
// make up each comment thread.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AccountID identifies an Account.
type AccountID uint64

// FollowID identifies a Follow.
type FollowID uint64

// BlogID identifies a Blog.
type BlogID uint64

// NoteID identifies a Note.
type NoteID uint64

// A Request is an outstanding unit of background work.
type Request struct {
	ID uint32 `gorm:"primarykey;"`
	// CreatedAt is the time the request was created.
	CreatedAt time.Time
	// UpdatedAt is the time the request was last updated.
	UpdatedAt time.Time
	// Attempts is the number of times the request has been attempted.
	Attempts uint32 `gorm:"not null;default:0"`
	// LastAttempt is the time the request was last attempted.
	LastAttempt time.Time
	// LastResult is the result of the last attempt if it failed.
	LastResult string `gorm:"type:text;"`
}

// AllTables returns a slice of all tables in the database.
func AllTables() []any {
	return []any{
		&Account{},
		&Follow{},
		&Blog{},
		&Note{},
		&Delivery{},
	}
}

var (
	// ErrAlreadyExists is returned when a create collides with an existing
	// row on one of its unique keys.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned by mutations of a row that does not exist,
	// and by LocalAccount when no account is local.
	ErrNotFound = errors.New("not found")

	// ErrReadAfterWrite is returned when a row cannot be read back by its
	// unique key immediately after it was created. It indicates a
	// misconfigured backend and is not recoverable.
	ErrReadAfterWrite = errors.New("row not visible after create")

	// ErrInvalid is returned when an actor descriptor lacks required fields.
	ErrInvalid = errors.New("invalid")
)

// translate maps backend constraint violations to ErrAlreadyExists.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrAlreadyExists, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"UNIQUE constraint failed", // sqlite
		"Duplicate entry",          // mysql
		"duplicate key value",      // postgres
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// keyed is a row whose primary key is a snowflake assigned by BeforeCreate.
type keyed interface {
	primaryKey() uint64
	clearKey()
}

// insert creates row. Two processes can generate the same snowflake, so a
// duplicate key that turns out to be the primary key is retried with a
// fresh id rather than reported as ErrAlreadyExists.
func insert[T any, P interface {
	*T
	keyed
}](ctx context.Context, db *gorm.DB, op string, row P) error {
	for tries := 1; ; tries++ {
		err := db.WithContext(ctx).Create(row).Error
		if err == nil || !isDuplicate(err) || tries == 3 {
			return translate(op, err)
		}
		var n int64
		if db.WithContext(ctx).Model(new(T)).Where("id = ?", row.primaryKey()).Count(&n).Error != nil || n == 0 {
			return translate(op, err)
		}
		row.clearKey()
	}
}

// first returns the first row matching the query, or nil if there is none.
func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var v T
	err := db.WithContext(ctx).Where(query, args...).Take(&v).Error
	switch {
	case err == nil:
		return &v, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// reread completes a create by loading the row back by its unique key.
func reread[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, fmt.Errorf("reread: %w", err)
	}
	if v == nil {
		var zero T
		return nil, fmt.Errorf("%T: %w", zero, ErrReadAfterWrite)
	}
	return v, nil
}

// affected returns ErrNotFound if the statement changed no rows.
func affected(op string, tx *gorm.DB) error {
	if tx.Error != nil {
		return fmt.Errorf("%s: %w", op, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is a unique key collision.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
