package wellknown

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/internal/to"
	"github.com/fediscus/fediscus/models"
	"github.com/go-chi/chi/v5"
)

// Version is reported in the nodeinfo document.
var Version = "0.0.0-devel"

func NodeInfoIndex(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	local, err := env.Storage.LocalAccount(r.Context())
	if err != nil {
		return err
	}
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"links": []any{
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.0", local.Host),
			},
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.1", local.Host),
			},
		},
	})
}

func NodeInfoShow(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	software := map[string]any{
		"name":    "fediscus",
		"version": Version,
	}
	version := chi.URLParam(r, "version")
	switch version {
	case "2.0":
		// https://github.com/jhass/nodeinfo/blob/main/schemas/2.0/schema.json
	case "2.1":
		software["repository"] = "https://github.com/fediscus/fediscus"
	default:
		return httpx.Error(http.StatusNotFound, errors.New("unsupported version: "+version))
	}
	notes, err := env.Storage.NoteCount(r.Context())
	if err != nil {
		return err
	}
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"version":           version,
		"software":          software,
		"protocols":         []any{"activitypub"},
		"services":          services(),
		"usage":             usage(notes),
		"openRegistrations": false,
		"metadata":          map[string]any{},
	})
}

func services() map[string]any {
	return map[string]any{
		"inbound":  []any{},
		"outbound": []any{},
	}
}

func usage(notes int64) map[string]any {
	return map[string]any{
		"users": map[string]any{
			"total": 1,
		},
		"localPosts": notes,
	}
}
