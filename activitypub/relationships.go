package activitypub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fediscus/fediscus/activitypub/activities"
	"github.com/fediscus/fediscus/models"
)

// ErrInvalidAccount is returned when a Follow names an object other than
// the local account.
var ErrInvalidAccount = errors.New("follow object is not the local account")

// Relationships maintains the follow edges between the local account and
// remote actors. Every accepted inbound follow is answered with a follow
// back, so the relay only follows actors that follow it.
type Relationships struct {
	store     models.Storage
	transport Transport
	logger    *slog.Logger
}

func NewRelationships(store models.Storage, transport Transport, logger *slog.Logger) *Relationships {
	return &Relationships{
		store:     store,
		transport: transport,
		logger:    logger,
	}
}

// HandleFollowRequest records that actor follows object, accepts the
// request and, if the local account does not yet follow actor, follows
// back. Repeated deliveries of the same Follow re-send the Accept but
// create no further rows.
func (r *Relationships) HandleFollowRequest(ctx context.Context, actor, object *models.Account, followURI string) error {
	local, err := r.store.LocalAccount(ctx)
	if err != nil {
		return err
	}
	if object.ID != local.ID {
		return fmt.Errorf("%w: %s", ErrInvalidAccount, object.URI)
	}

	_, err = r.store.CreateFollow(ctx, actor.ID, local.ID, followURI, false)
	switch {
	case err == nil:
		followsAccepted.Inc()
	case models.IsAlreadyExists(err):
		r.logger.Debug("follow already recorded", "actor", actor.URI, "follow", followURI)
	default:
		return err
	}

	accept := activities.Accept(activities.NewID(local), local, activities.Follow(followURI, actor, local))
	if err := r.transport.Deliver(ctx, local, accept, actor.InboxURL()); err != nil {
		return fmt.Errorf("deliver accept: %w", err)
	}

	back, err := r.store.FollowByPair(ctx, local.ID, actor.ID)
	if err != nil {
		return err
	}
	if back != nil {
		return nil
	}
	return r.follow(ctx, local, actor)
}

// HandleFollowAccepted confirms the local account's follow of actor.
func (r *Relationships) HandleFollowAccepted(ctx context.Context, actor *models.Account, followURI string) error {
	f, err := r.ownFollow(ctx, actor, followURI)
	if err != nil || f == nil {
		return err
	}
	if err := r.store.MarkFollowConfirmed(ctx, followURI); err != nil && !models.IsNotFound(err) {
		return err
	}
	return nil
}

// HandleFollowRejected forgets the local account's follow of actor.
func (r *Relationships) HandleFollowRejected(ctx context.Context, actor *models.Account, followURI string) error {
	f, err := r.ownFollow(ctx, actor, followURI)
	if err != nil || f == nil {
		return err
	}
	if err := r.store.DeleteFollowByID(ctx, f.ID); err != nil && !models.IsNotFound(err) {
		return err
	}
	return nil
}

// ownFollow returns the follow of actor by the local account with the
// given URI, or nil if there is no such follow.
func (r *Relationships) ownFollow(ctx context.Context, actor *models.Account, followURI string) (*models.Follow, error) {
	f, err := r.store.FollowByURI(ctx, followURI)
	if err != nil || f == nil {
		return nil, err
	}
	if f.TargetAccountID != actor.ID {
		r.logger.Info("ignoring response to follow of another actor", "actor", actor.URI, "follow", followURI)
		return nil, nil
	}
	return f, nil
}

// HandleFollowUndone removes actor's follow of the local account and
// withdraws the local account's follow of actor.
func (r *Relationships) HandleFollowUndone(ctx context.Context, actor *models.Account, followURI string) error {
	local, err := r.store.LocalAccount(ctx)
	if err != nil {
		return err
	}
	f, err := r.store.FollowByURI(ctx, followURI)
	if err != nil {
		return err
	}
	if f == nil {
		// not a follow we know of; by-reference undos of likes land here too.
		return nil
	}
	if f.AccountID != actor.ID || f.TargetAccountID != local.ID {
		r.logger.Info("ignoring undo of a follow by another actor", "actor", actor.URI, "follow", followURI)
		return nil
	}
	if err := r.store.DeleteFollowByID(ctx, f.ID); err != nil {
		if models.IsNotFound(err) {
			return nil
		}
		return err
	}
	return r.unfollow(ctx, local, actor)
}

// Follow makes the local account follow target.
func (r *Relationships) Follow(ctx context.Context, target *models.Account) error {
	local, err := r.store.LocalAccount(ctx)
	if err != nil {
		return err
	}
	if target.ID == local.ID {
		return fmt.Errorf("%w: cannot follow self", ErrInvalidAccount)
	}
	existing, err := r.store.FollowByPair(ctx, local.ID, target.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return r.follow(ctx, local, target)
}

// Unfollow withdraws the local account's follow of target, if any.
func (r *Relationships) Unfollow(ctx context.Context, target *models.Account) error {
	local, err := r.store.LocalAccount(ctx)
	if err != nil {
		return err
	}
	return r.unfollow(ctx, local, target)
}

// follow records a pending follow of target by local and sends it.
func (r *Relationships) follow(ctx context.Context, local, target *models.Account) error {
	uri := activities.NewID(local)
	if _, err := r.store.CreateFollow(ctx, local.ID, target.ID, uri, true); err != nil {
		if models.IsAlreadyExists(err) {
			// a concurrent delivery got there first.
			return nil
		}
		return err
	}
	if err := r.transport.Deliver(ctx, local, activities.Follow(uri, local, target), target.InboxURL()); err != nil {
		return fmt.Errorf("deliver follow: %w", err)
	}
	followsSent.Inc()
	return nil
}

// unfollow deletes the follow of target by local, if any, and sends the Undo.
func (r *Relationships) unfollow(ctx context.Context, local, target *models.Account) error {
	back, err := r.store.FollowByPair(ctx, local.ID, target.ID)
	if err != nil || back == nil {
		return err
	}
	if err := r.store.DeleteFollowByID(ctx, back.ID); err != nil {
		if models.IsNotFound(err) {
			return nil
		}
		return err
	}
	undo := activities.Undo(activities.NewID(local), local, activities.Follow(back.URI, local, target))
	if err := r.transport.Deliver(ctx, local, undo, target.InboxURL()); err != nil {
		return fmt.Errorf("deliver undo: %w", err)
	}
	return nil
}
