package activitypub

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
	"github.com/fediscus/fediscus/models"
)

// DefaultTag is the hashtag that marks a post as the start of a blog discussion.
const DefaultTag = "fediscus"

// Threads decides which posts are tracked and links replies into the
// thread of their root post.
//
// A post that replies to a tracked note is tracked, whatever its content.
// A post that replies to anything else is ignored. A post that replies to
// nothing is tracked if it carries the tag and links to a web page; that
// page becomes the thread's blog.
type Threads struct {
	store  models.Storage
	actors *Actors
	logger *slog.Logger

	tag    string
	tagExp *regexp.Regexp
}

func NewThreads(store models.Storage, actors *Actors, tag string, logger *slog.Logger) *Threads {
	tag = strings.TrimPrefix(tag, "#")
	if tag == "" {
		tag = DefaultTag
	}
	return &Threads{
		store:  store,
		actors: actors,
		logger: logger,
		tag:    tag,
		tagExp: hashtag(tag),
	}
}

// placement is where a post would go if it were tracked.
type placement struct {
	replyTo *models.Note // nil for a root note
	blogURL string       // set for a root note
}

// classify decides whether n is tracked, consulting only local storage.
// It returns nil if the post should be ignored.
func (t *Threads) classify(ctx context.Context, n *Note) (*placement, error) {
	if n.InReplyTo != "" {
		parent, err := t.store.NoteByURI(ctx, n.InReplyTo)
		if err != nil || parent == nil {
			return nil, err
		}
		return &placement{replyTo: parent}, nil
	}
	if !n.hasTag(t.tag, t.tagExp) {
		return nil, nil
	}
	links := n.links()
	if len(links) == 0 {
		return nil, nil
	}
	return &placement{blogURL: CanonicalURL(links[0])}, nil
}

// CanonicalURL normalises a blog URL so that trivially different spellings
// of the same page share a Blog.
func CanonicalURL(raw string) string {
	u, err := purell.NormalizeURLString(raw, purell.FlagsSafe|purell.FlagRemoveFragment)
	if err != nil {
		return raw
	}
	return u
}

// Create tracks n if it qualifies. author is the actor that created it,
// and must share a host with the note and its attribution. It returns the stored note, or nil if the post was ignored or had
// already been tracked.
func (t *Threads) Create(ctx context.Context, author string, n *Note) (*models.Note, error) {
	if n.ID == "" {
		return nil, nil
	}
	if !sameHost(n.ID, author) || (n.AttributedTo != "" && !sameHost(n.AttributedTo, author)) {
		t.logger.Info("ignoring note created on behalf of another host", "actor", author, "uri", n.ID, "attributedTo", n.AttributedTo)
		return nil, nil
	}
	p, err := t.classify(ctx, n)
	if err != nil || p == nil {
		return nil, err
	}
	if existing, err := t.store.NoteByURI(ctx, n.ID); err != nil || existing != nil {
		return nil, err
	}
	if n.AttributedTo != "" {
		author = n.AttributedTo
	}
	account, err := t.actors.Resolve(ctx, author)
	if err != nil {
		return nil, err
	}

	var note *models.Note
	if p.replyTo != nil {
		note, err = t.reply(ctx, account, n.ID, p.replyTo)
	} else {
		note, err = t.root(ctx, account, n.ID, p.blogURL)
	}
	if models.IsAlreadyExists(err) {
		t.logger.Debug("note already tracked", "uri", n.ID)
		return nil, nil
	}
	return note, err
}

func (t *Threads) root(ctx context.Context, author *models.Account, uri, blogURL string) (*models.Note, error) {
	blog, err := t.blog(ctx, blogURL)
	if err != nil {
		return nil, err
	}
	note, err := t.store.CreateNote(ctx, author.ID, uri, nil, nil, blog.ID)
	if err != nil {
		return nil, err
	}
	notesTracked.WithLabelValues("root").Inc()
	t.logger.Info("tracking thread", "uri", uri, "blog", blog.URL)
	return note, nil
}

func (t *Threads) reply(ctx context.Context, author *models.Account, uri string, parent *models.Note) (*models.Note, error) {
	rootID := parent.ID
	if parent.RootID != nil {
		rootID = *parent.RootID
	}
	note, err := t.store.CreateNote(ctx, author.ID, uri, &parent.ID, &rootID, parent.BlogID)
	if err != nil {
		return nil, err
	}
	notesTracked.WithLabelValues("reply").Inc()
	return note, nil
}

// blog returns the Blog for url, creating it if necessary.
func (t *Threads) blog(ctx context.Context, url string) (*models.Blog, error) {
	blog, err := t.store.BlogByURL(ctx, url)
	if err != nil || blog != nil {
		return blog, err
	}
	blog, err = t.store.CreateBlog(ctx, url)
	if models.IsAlreadyExists(err) {
		blog, err = t.store.BlogByURL(ctx, url)
		if err == nil && blog == nil {
			err = fmt.Errorf("blog %q: %w", url, models.ErrReadAfterWrite)
		}
	}
	return blog, err
}

// Delete stops tracking the note uri on behalf of actor. Replies to the
// note are kept.
func (t *Threads) Delete(ctx context.Context, actor, uri string) error {
	note, err := t.store.NoteByURI(ctx, uri)
	if err != nil || note == nil {
		return err
	}
	author, err := t.store.AccountByID(ctx, note.AccountID)
	if err != nil {
		return err
	}
	if author == nil || author.URI != actor {
		t.logger.Info("ignoring delete of a note by another actor", "actor", actor, "uri", uri)
		return nil
	}
	if err := t.store.DeleteNoteByID(ctx, note.ID); err != nil && !models.IsNotFound(err) {
		return err
	}
	return nil
}

// Like counts a like of the note uri. Likes of untracked posts are ignored.
func (t *Threads) Like(ctx context.Context, uri string) error {
	return ignoreNotFound(t.store.LikeNote(ctx, uri))
}

// Unlike withdraws a like of the note uri.
func (t *Threads) Unlike(ctx context.Context, uri string) error {
	return ignoreNotFound(t.store.UnlikeNote(ctx, uri))
}

// Announce counts a boost of the note uri.
func (t *Threads) Announce(ctx context.Context, uri string) error {
	return ignoreNotFound(t.store.RepostNote(ctx, uri))
}

// Unannounce withdraws a boost of the note uri.
func (t *Threads) Unannounce(ctx context.Context, uri string) error {
	return ignoreNotFound(t.store.UnrepostNote(ctx, uri))
}

func ignoreNotFound(err error) error {
	if models.IsNotFound(err) {
		return nil
	}
	return err
}
