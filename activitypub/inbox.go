package activitypub

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	icrypto "github.com/fediscus/fediscus/internal/crypto"
	"github.com/fediscus/fediscus/internal/httpsig"
	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/models"
)

// Env is the environment of the ActivityPub handlers.
type Env struct {
	*models.Env
	Dispatcher *Dispatcher
}

// maxActivitySize is the largest inbound document accepted.
const maxActivitySize = 1 << 20

// InboxCreate receives a signed activity delivered to the shared inbox or
// to the local account's inbox.
func InboxCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActivitySize+1))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if len(body) > maxActivitySize {
		return httpx.Error(http.StatusRequestEntityTooLarge, errors.New("activity too large"))
	}
	if err := checkDigest(r, body); err != nil {
		return httpx.Error(http.StatusUnauthorized, err)
	}
	activity, err := Parse(body)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}

	keyID, err := httpsig.Verify(r.Context(), r, env.publicKey)
	if err != nil {
		if _, ok := activity.(*Delete); ok {
			// the keys of deleted actors can no longer be fetched.
			env.Log().Debug("dropping unverifiable delete", "actor", activity.actorURI(), "err", err)
			w.WriteHeader(http.StatusAccepted)
			return nil
		}
		return httpx.Error(http.StatusUnauthorized, err)
	}
	if !sameHost(trimKeyID(keyID), activity.actorURI()) {
		return httpx.Error(http.StatusUnauthorized, fmt.Errorf("key %q cannot sign for %q", keyID, activity.actorURI()))
	}

	if err := env.Dispatcher.Dispatch(r.Context(), activity); err != nil {
		if !errors.Is(err, ErrUnsupported) {
			return err
		}
		env.Log().Debug("ignoring activity", "type", activity.Kind(), "actor", activity.actorURI())
	}
	w.WriteHeader(http.StatusAccepted)
	return nil
}

// publicKey returns the key of the actor owning keyID.
func (env *Env) publicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	pem, err := env.Dispatcher.Actors().PublicKey(ctx, trimKeyID(keyID))
	if err != nil {
		return nil, err
	}
	return icrypto.ParseRSAPublicKey([]byte(pem))
}

// checkDigest compares the SHA-256 Digest header, if present, with body.
func checkDigest(r *http.Request, body []byte) error {
	header := r.Header.Get("Digest")
	if header == "" {
		return nil
	}
	for _, part := range strings.Split(header, ",") {
		alg, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(alg, "SHA-256") {
			continue
		}
		sum := sha256.Sum256(body)
		if subtle.ConstantTimeCompare([]byte(value), []byte(base64.StdEncoding.EncodeToString(sum[:]))) != 1 {
			return errors.New("digest mismatch")
		}
		return nil
	}
	return fmt.Errorf("unsupported digest %q", header)
}

func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}
