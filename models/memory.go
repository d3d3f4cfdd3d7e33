package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Storage held in process memory. Each collection is
// guarded by its own mutex and every check-and-insert happens inside a
// single critical section, so concurrent creates observe the same
// uniqueness guarantees as the database backend.
//
// Rows are copied in and out; callers never share a row with the store.
type MemoryStore struct {
	accounts struct {
		sync.Mutex
		next uint64
		rows map[AccountID]*Account
	}
	follows struct {
		sync.Mutex
		next uint64
		rows map[FollowID]*Follow
	}
	blogs struct {
		sync.Mutex
		next uint64
		rows map[BlogID]*Blog
	}
	notes struct {
		sync.Mutex
		next uint64
		rows map[NoteID]*Note
	}
}

// NewMemoryStorage returns an empty MemoryStore.
func NewMemoryStorage() *MemoryStore {
	s := new(MemoryStore)
	s.accounts.rows = make(map[AccountID]*Account)
	s.follows.rows = make(map[FollowID]*Follow)
	s.blogs.rows = make(map[BlogID]*Blog)
	s.notes.rows = make(map[NoteID]*Note)
	return s
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// accountByURILocked must be called with s.accounts held.
func (s *MemoryStore) accountByURILocked(uri string) *Account {
	for _, a := range s.accounts.rows {
		if a.URI == uri {
			return a
		}
	}
	return nil
}

func (s *MemoryStore) insertAccountLocked(a *Account) *Account {
	s.accounts.next++
	now := time.Now()
	a.ID = AccountID(s.accounts.next)
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts.rows[a.ID] = a
	return clone(a)
}

func (s *MemoryStore) CreateAccount(ctx context.Context, p *Person) (*Account, error) {
	a, err := p.account()
	if err != nil {
		return nil, err
	}
	s.accounts.Lock()
	defer s.accounts.Unlock()
	if s.accountByURILocked(a.URI) != nil {
		return nil, fmt.Errorf("create account %q: %w", a.URI, ErrAlreadyExists)
	}
	return s.insertAccountLocked(a), nil
}

func (s *MemoryStore) UpsertAccount(ctx context.Context, p *Person) (*Account, error) {
	a, err := p.account()
	if err != nil {
		return nil, err
	}
	s.accounts.Lock()
	defer s.accounts.Unlock()
	existing := s.accountByURILocked(a.URI)
	switch {
	case existing == nil:
		return s.insertAccountLocked(a), nil
	case existing.Local:
		return clone(existing), nil
	default:
		existing.Username = a.Username
		existing.Host = a.Host
		existing.Inbox = a.Inbox
		existing.Outbox = a.Outbox
		existing.SharedInbox = a.SharedInbox
		existing.PublicKey = a.PublicKey
		existing.UpdatedAt = time.Now()
		return clone(existing), nil
	}
}

func (s *MemoryStore) CreateLocalAccount(ctx context.Context, p *Person, privateKeyPEM string) (*Account, error) {
	a, err := p.account()
	if err != nil {
		return nil, err
	}
	if privateKeyPEM == "" {
		return nil, fmt.Errorf("local account %q: missing private key: %w", a.URI, ErrInvalid)
	}
	a.Local = true
	a.PrivateKey = privateKeyPEM
	s.accounts.Lock()
	defer s.accounts.Unlock()
	for _, existing := range s.accounts.rows {
		if existing.Local || existing.URI == a.URI {
			return nil, fmt.Errorf("local account %q: %w", existing.URI, ErrAlreadyExists)
		}
	}
	return s.insertAccountLocked(a), nil
}

func (s *MemoryStore) AccountByID(ctx context.Context, id AccountID) (*Account, error) {
	s.accounts.Lock()
	defer s.accounts.Unlock()
	return clone(s.accounts.rows[id]), nil
}

func (s *MemoryStore) AccountByURI(ctx context.Context, uri string) (*Account, error) {
	s.accounts.Lock()
	defer s.accounts.Unlock()
	return clone(s.accountByURILocked(uri)), nil
}

func (s *MemoryStore) LocalAccount(ctx context.Context) (*Account, error) {
	s.accounts.Lock()
	defer s.accounts.Unlock()
	for _, a := range s.accounts.rows {
		if a.Local {
			return clone(a), nil
		}
	}
	return nil, fmt.Errorf("local account: %w", ErrNotFound)
}

// DeleteAccountByID deletes the account with its follows and notes.
func (s *MemoryStore) DeleteAccountByID(ctx context.Context, id AccountID) error {
	s.accounts.Lock()
	_, ok := s.accounts.rows[id]
	delete(s.accounts.rows, id)
	s.accounts.Unlock()
	if !ok {
		return fmt.Errorf("delete account %d: %w", id, ErrNotFound)
	}

	s.follows.Lock()
	for fid, f := range s.follows.rows {
		if f.AccountID == id || f.TargetAccountID == id {
			delete(s.follows.rows, fid)
		}
	}
	s.follows.Unlock()

	s.notes.Lock()
	for nid, n := range s.notes.rows {
		if n.AccountID == id {
			delete(s.notes.rows, nid)
		}
	}
	s.notes.Unlock()
	return nil
}

func (s *MemoryStore) followByURILocked(uri string) *Follow {
	for _, f := range s.follows.rows {
		if f.URI == uri {
			return f
		}
	}
	return nil
}

func (s *MemoryStore) CreateFollow(ctx context.Context, accountID, targetID AccountID, uri string, pending bool) (*Follow, error) {
	s.follows.Lock()
	defer s.follows.Unlock()
	for _, f := range s.follows.rows {
		if f.URI == uri || (f.AccountID == accountID && f.TargetAccountID == targetID) {
			return nil, fmt.Errorf("create follow %q: %w", uri, ErrAlreadyExists)
		}
	}
	s.follows.next++
	f := &Follow{
		ID:              FollowID(s.follows.next),
		CreatedAt:       time.Now(),
		AccountID:       accountID,
		TargetAccountID: targetID,
		URI:             uri,
		Pending:         pending,
	}
	s.follows.rows[f.ID] = f
	return clone(f), nil
}

func (s *MemoryStore) FollowByURI(ctx context.Context, uri string) (*Follow, error) {
	s.follows.Lock()
	defer s.follows.Unlock()
	return clone(s.followByURILocked(uri)), nil
}

func (s *MemoryStore) FollowByPair(ctx context.Context, accountID, targetID AccountID) (*Follow, error) {
	s.follows.Lock()
	defer s.follows.Unlock()
	for _, f := range s.follows.rows {
		if f.AccountID == accountID && f.TargetAccountID == targetID {
			return clone(f), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FollowsByAccountID(ctx context.Context, accountID AccountID) ([]*Follow, error) {
	s.follows.Lock()
	defer s.follows.Unlock()
	var follows []*Follow
	for _, f := range s.follows.rows {
		if f.AccountID == accountID {
			follows = append(follows, clone(f))
		}
	}
	sort.Slice(follows, func(i, j int) bool { return follows[i].ID < follows[j].ID })
	return follows, nil
}

func (s *MemoryStore) MarkFollowConfirmed(ctx context.Context, uri string) error {
	s.follows.Lock()
	defer s.follows.Unlock()
	f := s.followByURILocked(uri)
	if f == nil {
		return fmt.Errorf("confirm follow %q: %w", uri, ErrNotFound)
	}
	f.Pending = false
	return nil
}

func (s *MemoryStore) DeleteFollowByURI(ctx context.Context, uri string) error {
	s.follows.Lock()
	defer s.follows.Unlock()
	f := s.followByURILocked(uri)
	if f == nil {
		return fmt.Errorf("delete follow %q: %w", uri, ErrNotFound)
	}
	delete(s.follows.rows, f.ID)
	return nil
}

func (s *MemoryStore) DeleteFollowByID(ctx context.Context, id FollowID) error {
	s.follows.Lock()
	defer s.follows.Unlock()
	if _, ok := s.follows.rows[id]; !ok {
		return fmt.Errorf("delete follow %d: %w", id, ErrNotFound)
	}
	delete(s.follows.rows, id)
	return nil
}

func (s *MemoryStore) blogByURLLocked(url string) *Blog {
	for _, b := range s.blogs.rows {
		if b.URL == url {
			return b
		}
	}
	return nil
}

func (s *MemoryStore) CreateBlog(ctx context.Context, url string) (*Blog, error) {
	s.blogs.Lock()
	defer s.blogs.Unlock()
	if s.blogByURLLocked(url) != nil {
		return nil, fmt.Errorf("create blog %q: %w", url, ErrAlreadyExists)
	}
	s.blogs.next++
	b := &Blog{
		ID:        BlogID(s.blogs.next),
		CreatedAt: time.Now(),
		URL:       url,
	}
	s.blogs.rows[b.ID] = b
	return clone(b), nil
}

func (s *MemoryStore) BlogByID(ctx context.Context, id BlogID) (*Blog, error) {
	s.blogs.Lock()
	defer s.blogs.Unlock()
	return clone(s.blogs.rows[id]), nil
}

func (s *MemoryStore) BlogByURL(ctx context.Context, url string) (*Blog, error) {
	s.blogs.Lock()
	defer s.blogs.Unlock()
	return clone(s.blogByURLLocked(url)), nil
}

// DeleteBlogByID deletes the blog and the notes about it.
func (s *MemoryStore) DeleteBlogByID(ctx context.Context, id BlogID) error {
	s.blogs.Lock()
	_, ok := s.blogs.rows[id]
	delete(s.blogs.rows, id)
	s.blogs.Unlock()
	if !ok {
		return fmt.Errorf("delete blog %d: %w", id, ErrNotFound)
	}

	s.notes.Lock()
	defer s.notes.Unlock()
	for nid, n := range s.notes.rows {
		if n.BlogID == id {
			delete(s.notes.rows, nid)
		}
	}
	return nil
}

func (s *MemoryStore) noteByURILocked(uri string) *Note {
	for _, n := range s.notes.rows {
		if n.URI == uri {
			return n
		}
	}
	return nil
}

func cloneNote(n *Note) *Note {
	c := clone(n)
	if c != nil {
		c.ReplyToID = clone(n.ReplyToID)
		c.RootID = clone(n.RootID)
		c.Account = clone(n.Account)
	}
	return c
}

func (s *MemoryStore) CreateNote(ctx context.Context, authorID AccountID, uri string, replyToID, rootID *NoteID, blogID BlogID) (*Note, error) {
	s.notes.Lock()
	defer s.notes.Unlock()
	if s.noteByURILocked(uri) != nil {
		return nil, fmt.Errorf("create note %q: %w", uri, ErrAlreadyExists)
	}
	s.notes.next++
	now := time.Now()
	n := &Note{
		ID:        NoteID(s.notes.next),
		CreatedAt: now,
		UpdatedAt: now,
		AccountID: authorID,
		URI:       uri,
		ReplyToID: clone(replyToID),
		RootID:    clone(rootID),
		BlogID:    blogID,
	}
	s.notes.rows[n.ID] = n
	return cloneNote(n), nil
}

func (s *MemoryStore) NoteByID(ctx context.Context, id NoteID) (*Note, error) {
	s.notes.Lock()
	defer s.notes.Unlock()
	return cloneNote(s.notes.rows[id]), nil
}

func (s *MemoryStore) NoteByURI(ctx context.Context, uri string) (*Note, error) {
	s.notes.Lock()
	defer s.notes.Unlock()
	return cloneNote(s.noteByURILocked(uri)), nil
}

func (s *MemoryStore) DeleteNoteByID(ctx context.Context, id NoteID) error {
	s.notes.Lock()
	defer s.notes.Unlock()
	if _, ok := s.notes.rows[id]; !ok {
		return fmt.Errorf("delete note %d: %w", id, ErrNotFound)
	}
	delete(s.notes.rows, id)
	return nil
}

func (s *MemoryStore) NotesByBlog(ctx context.Context, blogID BlogID, offset, limit int) ([]*Note, int64, error) {
	s.notes.Lock()
	var notes []*Note
	for _, n := range s.notes.rows {
		if n.BlogID == blogID {
			notes = append(notes, cloneNote(n))
		}
	}
	s.notes.Unlock()

	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	total := int64(len(notes))
	if offset > len(notes) {
		offset = len(notes)
	}
	notes = notes[offset:]
	if limit >= 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	for _, n := range notes {
		a, _ := s.AccountByID(ctx, n.AccountID)
		n.Account = a
	}
	return notes, total, nil
}

func (s *MemoryStore) NoteCount(ctx context.Context) (int64, error) {
	s.notes.Lock()
	defer s.notes.Unlock()
	return int64(len(s.notes.rows)), nil
}

func (s *MemoryStore) LikeNote(ctx context.Context, uri string) error {
	return s.updateCounter(uri, "likes", func(n *Note) { n.Likes++ })
}

func (s *MemoryStore) UnlikeNote(ctx context.Context, uri string) error {
	return s.updateCounter(uri, "likes", func(n *Note) {
		if n.Likes > 0 {
			n.Likes--
		}
	})
}

func (s *MemoryStore) RepostNote(ctx context.Context, uri string) error {
	return s.updateCounter(uri, "reposts", func(n *Note) { n.Reposts++ })
}

func (s *MemoryStore) UnrepostNote(ctx context.Context, uri string) error {
	return s.updateCounter(uri, "reposts", func(n *Note) {
		if n.Reposts > 0 {
			n.Reposts--
		}
	})
}

func (s *MemoryStore) updateCounter(uri, column string, fn func(*Note)) error {
	s.notes.Lock()
	defer s.notes.Unlock()
	n := s.noteByURILocked(uri)
	if n == nil {
		return fmt.Errorf("update %s of %q: %w", column, uri, ErrNotFound)
	}
	fn(n)
	n.UpdatedAt = time.Now()
	return nil
}
