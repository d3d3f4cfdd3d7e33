package models

import (
	"context"
	"time"

	"github.com/fediscus/fediscus/internal/snowflake"
	"gorm.io/gorm"
)

// A Follow is a directed follow edge from Account to TargetAccount.
// URI is the id of the Follow activity that created the edge and is
// used to correlate later Accept, Reject and Undo activities.
type Follow struct {
	ID              FollowID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt       time.Time
	AccountID       AccountID `gorm:"not null;uniqueIndex:uidx_follows_account_id_target_account_id"`
	Account         *Account  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetAccountID AccountID `gorm:"not null;uniqueIndex:uidx_follows_account_id_target_account_id;index"`
	TargetAccount   *Account  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	URI             string    `gorm:"size:256;uniqueIndex;not null"`
	// Pending is true until the target has accepted the follow.
	Pending bool `gorm:"not null"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == 0 {
		f.ID = FollowID(snowflake.Now())
	}
	return nil
}

func (f *Follow) primaryKey() uint64 { return uint64(f.ID) }
func (f *Follow) clearKey()          { f.ID = 0 }

func (s *Store) CreateFollow(ctx context.Context, accountID, targetID AccountID, uri string, pending bool) (*Follow, error) {
	f := &Follow{
		AccountID:       accountID,
		TargetAccountID: targetID,
		URI:             uri,
		Pending:         pending,
	}
	if err := insert(ctx, s.db, "create follow", f); err != nil {
		return nil, err
	}
	return reread(s.FollowByURI(ctx, uri))
}

func (s *Store) FollowByURI(ctx context.Context, uri string) (*Follow, error) {
	return first[Follow](ctx, s.db, "uri = ?", uri)
}

func (s *Store) FollowByPair(ctx context.Context, accountID, targetID AccountID) (*Follow, error) {
	return first[Follow](ctx, s.db, "account_id = ? AND target_account_id = ?", accountID, targetID)
}

func (s *Store) FollowsByAccountID(ctx context.Context, accountID AccountID) ([]*Follow, error) {
	var follows []*Follow
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id").Find(&follows).Error
	return follows, err
}

func (s *Store) MarkFollowConfirmed(ctx context.Context, uri string) error {
	db := s.db.WithContext(ctx).Model(&Follow{}).Where("uri = ?", uri).Update("pending", false)
	if db.Error == nil && db.RowsAffected == 0 {
		// mysql reports zero rows affected when the follow was already confirmed.
		f, err := s.FollowByURI(ctx, uri)
		if err != nil {
			return err
		}
		if f != nil {
			return nil
		}
	}
	return affected("confirm follow", db)
}

func (s *Store) DeleteFollowByURI(ctx context.Context, uri string) error {
	return affected("delete follow", s.db.WithContext(ctx).Delete(&Follow{}, "uri = ?", uri))
}

func (s *Store) DeleteFollowByID(ctx context.Context, id FollowID) error {
	return affected("delete follow", s.db.WithContext(ctx).Delete(&Follow{}, "id = ?", id))
}
