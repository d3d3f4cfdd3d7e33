// Package wellknown serves the discovery documents under /.well-known.
package wellknown

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/internal/to"
	"github.com/fediscus/fediscus/internal/webfinger"
	"github.com/fediscus/fediscus/models"
)

// WebfingerShow describes the local account. The resource may be its
// acct: handle or its actor URI.
func WebfingerShow(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("missing resource"))
	}
	local, err := env.Storage.LocalAccount(r.Context())
	if err != nil {
		if models.IsNotFound(err) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	if !describes(local, resource) {
		return httpx.Error(http.StatusNotFound, errors.New("no such resource"))
	}

	acct := webfinger.Acct{User: local.Username, Host: local.Host}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	return to.As(w, to.JRD, &webfinger.JRD{
		Subject: acct.String(),
		Aliases: []string{local.URI},
		Links: []webfinger.Link{{
			Rel:  "self",
			Type: "application/activity+json",
			Href: local.URI,
		}},
	})
}

func describes(a *models.Account, resource string) bool {
	if strings.HasPrefix(resource, "https://") || strings.HasPrefix(resource, "http://") {
		return resource == a.URI
	}
	acct, err := webfinger.Parse(resource)
	if err != nil {
		return false
	}
	return strings.EqualFold(acct.User, a.Username) && strings.EqualFold(acct.Host, a.Host)
}
