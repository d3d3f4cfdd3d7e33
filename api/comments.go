// Package api serves the comment threads of tracked blog posts to the
// widgets embedded in those posts.
package api

import (
	"errors"
	"net/http"

	"github.com/fediscus/fediscus/activitypub"
	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/internal/to"
	"github.com/fediscus/fediscus/models"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// CommentsIndex returns a page of the comments on the blog post named by
// the url parameter, oldest first. Pages are numbered from 1.
func CommentsIndex(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		URL     string `json:"url" schema:"url,required"`
		Page    int    `json:"page" schema:"page"`
		PerPage int    `json:"per_page" schema:"per_page"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.URL == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("missing url"))
	}
	if params.Page < 1 {
		params.Page = 1
	}
	switch {
	case params.PerPage <= 0:
		params.PerPage = defaultPerPage
	case params.PerPage > maxPerPage:
		params.PerPage = maxPerPage
	}

	post := activitypub.CanonicalURL(params.URL)
	blog, err := env.Storage.BlogByURL(r.Context(), post)
	if err != nil {
		return err
	}
	if blog == nil {
		return httpx.Error(http.StatusNotFound, errors.New("post is not tracked"))
	}
	notes, total, err := env.Storage.NotesByBlog(r.Context(), blog.ID, (params.Page-1)*params.PerPage, params.PerPage)
	if err != nil {
		return err
	}

	s := serialiser{env: env, r: r, uris: make(map[models.NoteID]string, len(notes))}
	for _, n := range notes {
		s.uris[n.ID] = n.URI
	}
	comments := make([]*Comment, 0, len(notes))
	for _, n := range notes {
		c, err := s.comment(n)
		if err != nil {
			return err
		}
		comments = append(comments, c)
	}
	return to.JSON(w, &Comments{
		Post:     blog.URL,
		Total:    total,
		Page:     params.Page,
		PerPage:  params.PerPage,
		Comments: comments,
	})
}

type serialiser struct {
	env *models.Env
	r   *http.Request
	// uris caches the URIs of the notes seen so far.
	uris map[models.NoteID]string
}

func (s *serialiser) comment(n *models.Note) (*Comment, error) {
	c := &Comment{
		ID:          n.URI,
		URL:         n.URI,
		Published:   n.CreatedAt,
		LikesCount:  n.Likes,
		SharesCount: n.Reposts,
	}
	if n.ReplyToID != nil {
		uri, err := s.uri(*n.ReplyToID)
		if err != nil {
			return nil, err
		}
		if uri != "" {
			c.InReplyToID = &uri
		}
	}
	if a := n.Account; a != nil {
		c.Author = &Author{
			ID:       a.URI,
			Username: a.Username,
			Acct:     a.Acct(),
			URL:      a.URI,
		}
	}
	return c, nil
}

// uri returns the URI of the note id, or "" if it has been deleted.
func (s *serialiser) uri(id models.NoteID) (string, error) {
	if uri, ok := s.uris[id]; ok {
		return uri, nil
	}
	n, err := s.env.Storage.NoteByID(s.r.Context(), id)
	if err != nil || n == nil {
		return "", err
	}
	s.uris[id] = n.URI
	return n.URI, nil
}
