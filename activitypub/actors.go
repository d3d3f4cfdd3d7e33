package activitypub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fediscus/fediscus/models"
)

// Transport carries activities to and from remote servers.
type Transport interface {
	// FetchActor dereferences the actor document at uri.
	FetchActor(ctx context.Context, uri string) (*models.Person, error)
	// Deliver queues activity, signed as from, for delivery to each inbox.
	Deliver(ctx context.Context, from *models.Account, activity map[string]any, inboxes ...string) error
}

// DefaultActorMaxAge is how long a stored remote actor is used before it is
// fetched again.
const DefaultActorMaxAge = 24 * time.Hour

// Actors resolves actor URIs to accounts, preferring storage over the network.
type Actors struct {
	store     models.AccountStore
	transport Transport
	logger    *slog.Logger

	// MaxAge is the age after which a stored remote actor is refreshed.
	MaxAge time.Duration
}

func NewActors(store models.AccountStore, transport Transport, logger *slog.Logger) *Actors {
	return &Actors{
		store:     store,
		transport: transport,
		logger:    logger,
		MaxAge:    DefaultActorMaxAge,
	}
}

// Resolve returns the account for uri. Unknown and stale remote actors are
// fetched and stored. If a refresh fails the stale copy is returned.
func (a *Actors) Resolve(ctx context.Context, uri string) (*models.Account, error) {
	if uri == "" {
		return nil, fmt.Errorf("resolve actor: empty uri: %w", models.ErrInvalid)
	}
	account, err := a.store.AccountByURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	if account != nil && (account.Local || time.Since(account.UpdatedAt) < a.MaxAge) {
		return account, nil
	}
	person, err := a.transport.FetchActor(ctx, uri)
	if err != nil {
		if account != nil {
			a.logger.Warn("refresh actor failed, using stored copy", "uri", uri, "err", err)
			return account, nil
		}
		return nil, fmt.Errorf("fetch actor %q: %w", uri, err)
	}
	if person.ID != uri {
		return nil, fmt.Errorf("fetch actor %q: document has id %q: %w", uri, person.ID, models.ErrInvalid)
	}
	return a.store.UpsertAccount(ctx, person)
}

// Known returns the stored account for uri without touching the network,
// or nil if the actor has never been seen.
func (a *Actors) Known(ctx context.Context, uri string) (*models.Account, error) {
	return a.store.AccountByURI(ctx, uri)
}

// PublicKey returns the PEM encoded signing key of the actor uri. Actors
// that are not stored are fetched but not stored.
func (a *Actors) PublicKey(ctx context.Context, uri string) (string, error) {
	account, err := a.store.AccountByURI(ctx, uri)
	if err != nil {
		return "", err
	}
	if account != nil {
		if account, err = a.Resolve(ctx, uri); err != nil {
			return "", err
		}
		return account.PublicKey, nil
	}
	person, err := a.transport.FetchActor(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("fetch actor %q: %w", uri, err)
	}
	if person.ID != uri {
		return "", fmt.Errorf("fetch actor %q: document has id %q: %w", uri, person.ID, models.ErrInvalid)
	}
	return person.PublicKey.PublicKeyPem, nil
}
