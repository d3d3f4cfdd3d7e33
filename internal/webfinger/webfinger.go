// Package webfinger implements the subset of RFC 7033 needed to map
// acct: handles to ActivityPub actor URIs.
package webfinger

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

// JRD is a JSON Resource Descriptor.
type JRD struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

// Link is a link relation in a JRD.
type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// ActivityPub returns the href of the self link of the resource.
func (jrd *JRD) ActivityPub() (string, error) {
	for _, link := range jrd.Links {
		if link.Rel == "self" && strings.HasPrefix(link.Type, "application/") && strings.Contains(link.Type, "json") {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("webfinger: no ActivityPub link for %q", jrd.Subject)
}

// Acct is a user@host handle.
type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL of the WebFinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// Fetch retrieves the JRD describing a.
func (a *Acct) Fetch(ctx context.Context) (*JRD, error) {
	var jrd JRD
	err := requests.URL(a.Webfinger()).
		Accept("application/jrd+json").
		ToJSON(&jrd).
		Fetch(ctx)
	return &jrd, err
}

// Parse parses a handle in one of the forms acct:user@host, @user@host or user@host.
func Parse(query string) (*Acct, error) {
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	query = strings.TrimPrefix(query, "acct:")
	query = strings.TrimPrefix(query, "@")
	user, host, ok := strings.Cut(query, "@")
	if !ok || user == "" || host == "" || strings.Contains(host, "@") {
		return nil, fmt.Errorf("invalid acct: %q", query)
	}
	return &Acct{
		User: user,
		Host: host,
	}, nil
}

// ErrNotAcct is returned by Resolve when the handle is neither an URL nor an acct.
var ErrNotAcct = errors.New("webfinger: not an acct or URL")

// Resolve returns the actor URI for handle, which may already be an https URL.
func Resolve(ctx context.Context, handle string) (string, error) {
	if strings.HasPrefix(handle, "https://") || strings.HasPrefix(handle, "http://") {
		return handle, nil
	}
	acct, err := Parse(handle)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAcct, err)
	}
	jrd, err := acct.Fetch(ctx)
	if err != nil {
		return "", err
	}
	return jrd.ActivityPub()
}
