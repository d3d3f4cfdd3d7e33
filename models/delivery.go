package models

import (
	"context"

	"github.com/fediscus/fediscus/internal/algorithms"
	"gorm.io/gorm"
)

// A Delivery is an outbound activity waiting to be posted to an inbox.
// Deliveries are created by Deliveries.Enqueue and drained by the
// delivery processor in the background.
type Delivery struct {
	Request

	// AccountID is the local account the activity is signed as.
	AccountID AccountID `gorm:"not null;index"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	// Inbox is the URL the activity is posted to.
	Inbox    string         `gorm:"size:256;not null"`
	Activity map[string]any `gorm:"serializer:json;type:text;not null"`
}

// Deliveries is the outbound activity queue.
type Deliveries struct {
	db *gorm.DB
}

func NewDeliveries(db *gorm.DB) *Deliveries {
	return &Deliveries{
		db: db,
	}
}

// Enqueue records one delivery of activity from the sender to each distinct inbox.
func (d *Deliveries) Enqueue(ctx context.Context, from *Account, activity map[string]any, inboxes ...string) error {
	inboxes = algorithms.Filter(algorithms.Uniq(inboxes), func(inbox string) bool {
		return inbox != ""
	})
	if len(inboxes) == 0 {
		return nil
	}
	deliveries := algorithms.Map(inboxes, func(inbox string) *Delivery {
		return &Delivery{
			AccountID: from.ID,
			Inbox:     inbox,
			Activity:  activity,
		}
	})
	return translate("enqueue delivery", d.db.WithContext(ctx).Create(deliveries).Error)
}

// Pending returns the number of deliveries that have not yet been attempted.
func (d *Deliveries) Pending(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&Delivery{}).Where("attempts = 0").Count(&count).Error
	return count, err
}
