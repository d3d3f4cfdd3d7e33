// Package activities builds the ActivityStreams documents the relay sends.
package activities

import (
	"fmt"

	"github.com/fediscus/fediscus/models"
	"github.com/google/uuid"
)

const (
	ACCEPT = "Accept"
	FOLLOW = "Follow"
	UNDO   = "Undo"

	// Context is the JSON-LD context of every outbound activity.
	Context = "https://www.w3.org/ns/activitystreams"
)

// NewID returns a fresh activity id in the namespace of the actor's host.
func NewID(actor *models.Account) string {
	return fmt.Sprintf("https://%s/activity/%s", actor.Host, uuid.New())
}

// Follow returns a Follow of object by actor with the given id.
func Follow(id string, actor, object *models.Account) map[string]any {
	return map[string]any{
		"@context": Context,
		"id":       id,
		"type":     FOLLOW,
		"actor":    actor.URI,
		"object":   object.URI,
	}
}

// Accept returns actor's acceptance of the follow activity.
func Accept(id string, actor *models.Account, follow map[string]any) map[string]any {
	return response(ACCEPT, id, actor, follow)
}

// Undo returns actor's retraction of the given activity.
func Undo(id string, actor *models.Account, object map[string]any) map[string]any {
	return response(UNDO, id, actor, object)
}

func response(typ, id string, actor *models.Account, object map[string]any) map[string]any {
	embedded := make(map[string]any, len(object))
	for k, v := range object {
		if k != "@context" {
			embedded[k] = v
		}
	}
	return map[string]any{
		"@context": Context,
		"id":       id,
		"type":     typ,
		"actor":    actor.URI,
		"object":   embedded,
	}
}
