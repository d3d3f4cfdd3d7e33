// Package activitypub receives federated activities and applies them to the
// relay's follow graph and comment threads.
package activitypub

import (
	"strings"

	"github.com/go-json-experiment/json"
)

// Activity is an inbound activity. The set of implementations is closed;
// kinds the relay does not handle are represented by *Unsupported.
type Activity interface {
	// Kind returns the ActivityStreams type of the activity.
	Kind() string

	// actorURI returns the URI of the actor that performed the activity.
	actorURI() string
}

// Follow is a request by Actor to follow Object.
type Follow struct {
	ID     string
	Actor  string
	Object string
}

// Accept is Actor's acceptance of the Follow whose id is Object.
type Accept struct {
	ID     string
	Actor  string
	Object string
}

// Reject is Actor's refusal of the Follow whose id is Object.
type Reject struct {
	ID     string
	Actor  string
	Object string
}

// Undo retracts an earlier activity of Actor.
type Undo struct {
	ID    string
	Actor string
	// Object is the id of the activity being undone.
	Object string
	// ObjectKind is the type of the activity being undone, Follow if the
	// object was given only by reference.
	ObjectKind string
	// Target is the object of the activity being undone, if it was embedded.
	Target string
}

// Create announces a new post by Actor.
type Create struct {
	ID    string
	Actor string
	Note  *Note
}

// Delete removes Object, a post or Actor itself.
type Delete struct {
	ID     string
	Actor  string
	Object string
}

// Like is Actor's like of the post Object.
type Like struct {
	ID     string
	Actor  string
	Object string
}

// Announce is Actor's boost of the post Object.
type Announce struct {
	ID     string
	Actor  string
	Object string
}

// Unsupported is any activity the relay does not act on.
type Unsupported struct {
	ID    string
	Actor string
	Type  string
}

func (*Follow) Kind() string { return "Follow" }
func (*Accept) Kind() string { return "Accept" }
func (*Reject) Kind() string { return "Reject" }
func (*Undo) Kind() string { return "Undo" }
func (*Create) Kind() string { return "Create" }
func (*Delete) Kind() string { return "Delete" }
func (*Like) Kind() string { return "Like" }
func (*Announce) Kind() string { return "Announce" }
func (u *Unsupported) Kind() string { return u.Type }

func (a *Follow) actorURI() string { return a.Actor }
func (a *Accept) actorURI() string { return a.Actor }
func (a *Reject) actorURI() string { return a.Actor }
func (a *Undo) actorURI() string { return a.Actor }
func (a *Create) actorURI() string { return a.Actor }
func (a *Delete) actorURI() string { return a.Actor }
func (a *Like) actorURI() string { return a.Actor }
func (a *Announce) actorURI() string { return a.Actor }
func (a *Unsupported) actorURI() string { return a.Actor }

// noteTypes are the object types a Create may carry for it to be considered a post.
var noteTypes = map[string]bool{
	"Note":     true,
	"Article":  true,
	"Page":     true,
	"Question": true,
}

// Parse decodes an ActivityStreams document. It only fails if body is not a
// JSON object; documents of unknown or unusable shape become *Unsupported.
func Parse(body []byte) (Activity, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	return parse(obj), nil
}

func parse(obj map[string]any) Activity {
	id := stringFromAny(obj["id"])
	actor := idOf(obj["actor"])
	typ := typeOf(obj)
	switch typ {
	case "Follow":
		return &Follow{ID: id, Actor: actor, Object: idOf(obj["object"])}
	case "Accept":
		return &Accept{ID: id, Actor: actor, Object: idOf(obj["object"])}
	case "Reject":
		return &Reject{ID: id, Actor: actor, Object: idOf(obj["object"])}
	case "Undo":
		undo := &Undo{ID: id, Actor: actor, Object: idOf(obj["object"]), ObjectKind: "Follow"}
		if inner := mapFromAny(obj["object"]); inner != nil {
			undo.ObjectKind = typeOf(inner)
			undo.Target = idOf(inner["object"])
		}
		switch undo.ObjectKind {
		case "Follow", "Like", "Announce":
			return undo
		}
	case "Create":
		inner := mapFromAny(obj["object"])
		if noteTypes[typeOf(inner)] {
			return &Create{ID: id, Actor: actor, Note: parseNote(inner)}
		}
	case "Delete":
		return &Delete{ID: id, Actor: actor, Object: idOf(obj["object"])}
	case "Like":
		return &Like{ID: id, Actor: actor, Object: idOf(obj["object"])}
	case "Announce":
		return &Announce{ID: id, Actor: actor, Object: idOf(obj["object"])}
	}
	return &Unsupported{ID: id, Actor: actor, Type: typ}
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func mapFromAny(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func anyToSlice(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// idOf returns the id of a property that may be a bare URI or an embedded object.
func idOf(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any:
		return stringFromAny(v["id"])
	default:
		return ""
	}
}

// typeOf returns the type of obj, or the first of its types.
func typeOf(obj map[string]any) string {
	for _, t := range anyToSlice(obj["type"]) {
		if s := stringFromAny(t); s != "" {
			return s
		}
	}
	return ""
}

// trimKeyID removes the fragment from a key id, leaving the owning actor's URI.
func trimKeyID(id string) string {
	uri, _, _ := strings.Cut(id, "#")
	return uri
}
