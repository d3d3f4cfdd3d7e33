package main

import (
	"context"

	"github.com/fediscus/fediscus/activitypub"
	"github.com/fediscus/fediscus/internal/webfinger"
	"github.com/fediscus/fediscus/models"
	"github.com/fediscus/fediscus/workers"
	"gorm.io/gorm"
)

type FollowCmd struct {
	Actor string `arg:"" help:"actor to follow, as @user@host or an actor URI"`
}

func (f *FollowCmd) Run(ctx *Context) error {
	return withRelationships(ctx, f.Actor, func(c context.Context, r *activitypub.Relationships, target *models.Account) error {
		if err := r.Follow(c, target); err != nil {
			return err
		}
		ctx.Logger.Info("following", "uri", target.URI)
		return nil
	})
}

type UnfollowCmd struct {
	Actor string `arg:"" help:"actor to unfollow, as @user@host or an actor URI"`
}

func (u *UnfollowCmd) Run(ctx *Context) error {
	return withRelationships(ctx, u.Actor, func(c context.Context, r *activitypub.Relationships, target *models.Account) error {
		if err := r.Unfollow(c, target); err != nil {
			return err
		}
		ctx.Logger.Info("unfollowed", "uri", target.URI)
		return nil
	})
}

// withRelationships resolves handle and calls fn with the relay's
// relationships. Activities queued by fn are delivered before it returns.
func withRelationships(ctx *Context, handle string, fn func(context.Context, *activitypub.Relationships, *models.Account) error) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	c := context.Background()
	dispatcher, err := newDispatcher(c, db, activitypub.DefaultTag, ctx)
	if err != nil {
		return err
	}

	uri, err := webfinger.Resolve(c, handle)
	if err != nil {
		return err
	}
	target, err := dispatcher.Actors().Resolve(c, uri)
	if err != nil {
		return err
	}
	if err := fn(c, dispatcher.Relationships(), target); err != nil {
		return err
	}
	return workers.NewDeliveryProcessor(db, ctx.Logger).Pass(c)
}

// newDispatcher returns a Dispatcher acting as the local account, which
// must already exist.
func newDispatcher(c context.Context, db *gorm.DB, tag string, ctx *Context) (*activitypub.Dispatcher, error) {
	store := models.NewStorage(db)
	local, err := store.LocalAccount(c)
	if err != nil {
		return nil, err
	}
	federation, err := activitypub.NewFederation(local, models.NewDeliveries(db))
	if err != nil {
		return nil, err
	}
	return activitypub.NewDispatcher(store, federation, tag, ctx.Logger), nil
}
