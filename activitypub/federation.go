package activitypub

import (
	"context"
	"fmt"

	"github.com/fediscus/fediscus/internal/activitypub"
	"github.com/fediscus/fediscus/models"
)

// Federation is the Transport used in production. Actors are fetched with
// requests signed by the local account; outbound activities are queued
// and posted by the delivery processor.
type Federation struct {
	client     *activitypub.Client
	deliveries *models.Deliveries
}

// NewFederation returns a Federation that signs as local.
func NewFederation(local *models.Account, deliveries *models.Deliveries) (*Federation, error) {
	client, err := activitypub.NewClient(local.PublicKeyID(), []byte(local.PrivateKey))
	if err != nil {
		return nil, err
	}
	return &Federation{
		client:     client,
		deliveries: deliveries,
	}, nil
}

func (f *Federation) FetchActor(ctx context.Context, uri string) (*models.Person, error) {
	var person models.Person
	if err := f.client.Fetch(ctx, uri, &person); err != nil {
		return nil, err
	}
	if person.ID == "" || person.Inbox == "" {
		return nil, fmt.Errorf("actor %q: missing id or inbox: %w", uri, models.ErrInvalid)
	}
	return &person, nil
}

func (f *Federation) Deliver(ctx context.Context, from *models.Account, activity map[string]any, inboxes ...string) error {
	return f.deliveries.Enqueue(ctx, from, activity, inboxes...)
}
