// Package activitypub contains a signing ActivityPub HTTP client.
package activitypub

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/fediscus/fediscus/internal/crypto"
	"github.com/fediscus/fediscus/internal/httpsig"
	"github.com/go-json-experiment/json"
)

// ContentType is the media type used for outbound activities.
const ContentType = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

// Client fetches and posts ActivityPub documents, signing each request
// with the key of the local actor.
type Client struct {
	keyID      string
	privateKey *rsa.PrivateKey

	// Transport is used for outbound requests, http.DefaultTransport if nil.
	Transport http.RoundTripper
}

// NewClient returns a new client that signs as keyID using the PEM encoded
// private key.
func NewClient(keyID string, privateKeyPEM []byte) (*Client, error) {
	_, privateKey, err := crypto.ParseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key for %q: %w", keyID, err)
	}
	return &Client{
		keyID:      keyID,
		privateKey: privateKey,
	}, nil
}

func (c *Client) transport(body []byte) requests.RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if err := httpsig.Sign(req, c.keyID, c.privateKey, body); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
		rt := c.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		return rt.RoundTrip(req)
	}
}

// Fetch fetches the ActivityPub resource at the given URL and decodes it into obj.
func (c *Client) Fetch(ctx context.Context, uri string, obj any) error {
	return requests.URL(uri).
		Accept(ContentType).
		Transport(c.transport(nil)).
		CheckContentType(
			"application/ld+json",
			"application/activity+json",
			"application/json",
			"application/octet-stream", // sigh
		).
		CheckStatus(http.StatusOK).
		Handle(func(resp *http.Response) error {
			defer resp.Body.Close()
			return json.UnmarshalFull(resp.Body, obj)
		}).
		Fetch(ctx)
}

// Post delivers the ActivityPub document to the inbox at url.
func (c *Client) Post(ctx context.Context, url string, obj map[string]any) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return requests.URL(url).
		BodyBytes(body).
		ContentType(ContentType).
		Transport(c.transport(body)).
		CheckStatus(http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent).
		Fetch(ctx)
}
