package activitypub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fediscus/fediscus/models"
)

// ErrUnsupported is returned by Dispatch for activities the relay does not
// act on. It is not a failure of the delivery.
var ErrUnsupported = errors.New("unsupported activity")

// Dispatcher applies inbound activities to storage.
type Dispatcher struct {
	store         models.Storage
	actors        *Actors
	relationships *Relationships
	threads       *Threads
	logger        *slog.Logger
}

// NewDispatcher returns a Dispatcher that tracks posts carrying tag.
func NewDispatcher(store models.Storage, transport Transport, tag string, logger *slog.Logger) *Dispatcher {
	actors := NewActors(store, transport, logger)
	return &Dispatcher{
		store:         store,
		actors:        actors,
		relationships: NewRelationships(store, transport, logger),
		threads:       NewThreads(store, actors, tag, logger),
		logger:        logger,
	}
}

func (d *Dispatcher) Actors() *Actors { return d.actors }

func (d *Dispatcher) Relationships() *Relationships { return d.relationships }

// Dispatch applies a. Activities that are invalid, or that refer to
// state the relay does not have, are discarded and return nil.
func (d *Dispatcher) Dispatch(ctx context.Context, a Activity) error {
	err := d.dispatch(ctx, a)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrUnsupported):
		result = "unsupported"
	case errors.Is(err, ErrInvalidAccount), errors.Is(err, models.ErrInvalid):
		d.logger.Info("discarding activity", "type", a.Kind(), "err", err)
		result, err = "discarded", nil
	default:
		result = "error"
	}
	activitiesReceived.WithLabelValues(a.Kind(), result).Inc()
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, a Activity) error {
	switch a := a.(type) {
	case *Follow:
		return d.follow(ctx, a)
	case *Accept:
		return d.withKnownActor(ctx, a.Actor, func(actor *models.Account) error {
			return d.relationships.HandleFollowAccepted(ctx, actor, a.Object)
		})
	case *Reject:
		return d.withKnownActor(ctx, a.Actor, func(actor *models.Account) error {
			return d.relationships.HandleFollowRejected(ctx, actor, a.Object)
		})
	case *Undo:
		switch a.ObjectKind {
		case "Like":
			return d.threads.Unlike(ctx, a.Target)
		case "Announce":
			return d.threads.Unannounce(ctx, a.Target)
		default:
			return d.withKnownActor(ctx, a.Actor, func(actor *models.Account) error {
				return d.relationships.HandleFollowUndone(ctx, actor, a.Object)
			})
		}
	case *Create:
		_, err := d.threads.Create(ctx, a.Actor, a.Note)
		return err
	case *Delete:
		return d.delete(ctx, a)
	case *Like:
		return d.threads.Like(ctx, a.Object)
	case *Announce:
		return d.threads.Announce(ctx, a.Object)
	case *Unsupported:
		return fmt.Errorf("%w: %q", ErrUnsupported, a.Type)
	default:
		panic(fmt.Sprintf("unhandled activity %T", a))
	}
}

func (d *Dispatcher) follow(ctx context.Context, f *Follow) error {
	if f.ID == "" || f.Object == "" {
		return fmt.Errorf("follow without id or object: %w", models.ErrInvalid)
	}
	object, err := d.store.AccountByURI(ctx, f.Object)
	if err != nil {
		return err
	}
	if object == nil || !object.Local {
		return fmt.Errorf("%w: %s", ErrInvalidAccount, f.Object)
	}
	actor, err := d.actors.Resolve(ctx, f.Actor)
	if err != nil {
		return err
	}
	return d.relationships.HandleFollowRequest(ctx, actor, object, f.ID)
}

// withKnownActor calls fn with the stored account of uri. Activities from
// actors the relay has never seen cannot refer to any of its state.
func (d *Dispatcher) withKnownActor(ctx context.Context, uri string, fn func(*models.Account) error) error {
	actor, err := d.actors.Known(ctx, uri)
	if err != nil || actor == nil {
		return err
	}
	return fn(actor)
}

func (d *Dispatcher) delete(ctx context.Context, del *Delete) error {
	if del.Object != "" && del.Object == del.Actor {
		actor, err := d.actors.Known(ctx, del.Actor)
		if err != nil || actor == nil || actor.Local {
			return err
		}
		d.logger.Info("deleting account", "uri", actor.URI)
		return ignoreNotFound(d.store.DeleteAccountByID(ctx, actor.ID))
	}
	return d.threads.Delete(ctx, del.Actor, del.Object)
}
