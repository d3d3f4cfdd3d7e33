// Package to writes response bodies.
package to

import (
	"net/http"

	"github.com/go-json-experiment/json"
)

// ActivityStreams is the media type of ActivityPub documents.
const ActivityStreams = "application/activity+json; charset=utf-8"

// JRD is the media type of WebFinger documents.
const JRD = "application/jrd+json; charset=utf-8"

// JSON writes the given object to the response body as indented JSON.
// If obj is a nil slice, an empty JSON array is written.
// If obj is a nil map, an empty JSON object is written.
// If obj is a nil pointer, a null is written.
func JSON(w http.ResponseWriter, obj any) error {
	return As(w, "application/json; charset=utf-8", obj)
}

// ActivityJSON writes obj as an ActivityStreams document.
func ActivityJSON(w http.ResponseWriter, obj any) error {
	return As(w, ActivityStreams, obj)
}

// As writes obj as indented JSON with the given Content-Type.
func As(w http.ResponseWriter, contentType string, obj any) error {
	w.Header().Set("Content-Type", contentType)
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{
		Indent: "  ",
	}, w, obj)
}
