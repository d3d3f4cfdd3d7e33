package activitypub

import (
	"errors"
	"net/http"

	"github.com/fediscus/fediscus/activitypub/activities"
	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/internal/to"
	"github.com/fediscus/fediscus/models"
	"github.com/go-chi/chi/v5"
)

// UsersShow serves the actor document of the local account.
func UsersShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	local, err := localUser(env, r)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, actorDocument(local))
}

// OutboxIndex serves the local account's outbox. The relay publishes
// nothing, so it is always empty.
func OutboxIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	local, err := localUser(env, r)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, map[string]any{
		"@context":     activities.Context,
		"id":           local.Outbox,
		"type":         "OrderedCollection",
		"totalItems":   0,
		"orderedItems": []any{},
	})
}

func localUser(env *Env, r *http.Request) (*models.Account, error) {
	local, err := env.Storage.LocalAccount(r.Context())
	if err != nil {
		if models.IsNotFound(err) {
			return nil, httpx.Error(http.StatusNotFound, err)
		}
		return nil, err
	}
	if username := chi.URLParam(r, "username"); username != local.Username {
		return nil, httpx.Error(http.StatusNotFound, errors.New("no such user"))
	}
	return local, nil
}

func actorDocument(a *models.Account) map[string]any {
	doc := map[string]any{
		"@context": []any{
			activities.Context,
			"https://w3id.org/security/v1",
		},
		"id":                a.URI,
		"type":              "Person",
		"preferredUsername": a.Username,
		"inbox":             a.Inbox,
		"outbox":            a.Outbox,
		"publicKey": map[string]any{
			"id":           a.PublicKeyID(),
			"owner":        a.URI,
			"publicKeyPem": a.PublicKey,
		},
	}
	if a.SharedInbox != "" {
		doc["endpoints"] = map[string]any{
			"sharedInbox": a.SharedInbox,
		}
	}
	return doc
}
