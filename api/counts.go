package api

import (
	"net/http"

	"github.com/fediscus/fediscus/activitypub"
	"github.com/fediscus/fediscus/internal/algorithms"
	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/internal/to"
	"github.com/fediscus/fediscus/models"
)

// maxCountPosts bounds the number of posts in one counts request.
const maxCountPosts = 50

// CountsCreate returns the number of comments on each of the given blog
// posts. Posts that are not tracked have no comments.
func CountsCreate(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Posts []string `json:"posts" schema:"posts"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	posts := algorithms.Uniq(params.Posts)
	if len(posts) > maxCountPosts {
		posts = posts[:maxCountPosts]
	}
	counts := make(map[string]int64, len(posts))
	for _, post := range posts {
		blog, err := env.Storage.BlogByURL(r.Context(), activitypub.CanonicalURL(post))
		if err != nil {
			return err
		}
		if blog == nil {
			counts[post] = 0
			continue
		}
		_, total, err := env.Storage.NotesByBlog(r.Context(), blog.ID, 0, 0)
		if err != nil {
			return err
		}
		counts[post] = total
	}
	return to.JSON(w, map[string]any{
		"counts": counts,
	})
}
