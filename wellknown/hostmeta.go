package wellknown

import (
	"io"
	"net/http"

	"github.com/fediscus/fediscus/models"
)

// HostMetaIndex points legacy clients at the WebFinger endpoint.
func HostMetaIndex(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	local, err := env.Storage.LocalAccount(r.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xrd+xml; charset=utf-8")
	_, err = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
	<Subject>`+local.Host+`</Subject>
	<Link rel="lrdd" template="https://`+local.Host+`/.well-known/webfinger?resource={uri}"/>
</XRD>
`)
	return err
}
