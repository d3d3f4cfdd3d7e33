package models

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fediscus/fediscus/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// An Account is an actor known to the relay. Exactly one account is Local;
// it is the only one with a PrivateKey.
type Account struct {
	ID          AccountID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	URI         string `gorm:"size:256;uniqueIndex;not null"`
	Username    string `gorm:"size:64;not null"`
	Host        string `gorm:"size:256;not null"`
	Inbox       string `gorm:"size:256;not null"`
	Outbox      string `gorm:"size:256"`
	SharedInbox string `gorm:"size:256"`
	PublicKey   string `gorm:"type:text;not null"`
	PrivateKey  string `gorm:"type:text"`
	Local       bool   `gorm:"column:is_local;not null;default:false;index"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == 0 {
		a.ID = AccountID(snowflake.Now())
	}
	return nil
}

func (a *Account) primaryKey() uint64 { return uint64(a.ID) }
func (a *Account) clearKey()          { a.ID = 0 }

// InboxURL returns the shared inbox of the account if it has one,
// otherwise its personal inbox.
func (a *Account) InboxURL() string {
	if a.SharedInbox != "" {
		return a.SharedInbox
	}
	return a.Inbox
}

// PublicKeyID returns the id of the account's signing key.
func (a *Account) PublicKeyID() string {
	return a.URI + "#main-key"
}

// Acct returns the user@host handle of the account.
func (a *Account) Acct() string {
	return a.Username + "@" + a.Host
}

// Person is the subset of an ActivityStreams actor document the relay
// cares about.
type Person struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	PreferredUsername string     `json:"preferredUsername"`
	Name              string     `json:"name,omitempty"`
	Inbox             string     `json:"inbox"`
	Outbox            string     `json:"outbox,omitempty"`
	Endpoints         *Endpoints `json:"endpoints,omitempty"`
	PublicKey         PublicKey  `json:"publicKey"`
}

// Endpoints lists the optional endpoints of an actor.
type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// PublicKey is the signing key of an actor.
type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// account converts p into an unsaved Account.
func (p *Person) account() (*Account, error) {
	if p.ID == "" || p.Inbox == "" {
		return nil, fmt.Errorf("actor %q: missing id or inbox: %w", p.ID, ErrInvalid)
	}
	u, err := url.Parse(p.ID)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("actor %q: %w", p.ID, ErrInvalid)
	}
	a := &Account{
		URI:       p.ID,
		Username:  p.PreferredUsername,
		Host:      u.Host,
		Inbox:     p.Inbox,
		Outbox:    p.Outbox,
		PublicKey: p.PublicKey.PublicKeyPem,
	}
	if p.Endpoints != nil {
		a.SharedInbox = p.Endpoints.SharedInbox
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, p *Person) (*Account, error) {
	a, err := p.account()
	if err != nil {
		return nil, err
	}
	if err := insert(ctx, s.db, "create account", a); err != nil {
		return nil, err
	}
	return reread(s.AccountByURI(ctx, a.URI))
}

func (s *Store) UpsertAccount(ctx context.Context, p *Person) (*Account, error) {
	a, err := p.account()
	if err != nil {
		return nil, err
	}
	existing, err := s.AccountByURI(ctx, a.URI)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Local {
		return existing, nil
	}
	err = insert(ctx, s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uri"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username",
			"host",
			"inbox",
			"outbox",
			"shared_inbox",
			"public_key",
			"updated_at",
		}),
	}), "upsert account", a)
	if err != nil {
		return nil, err
	}
	return reread(s.AccountByURI(ctx, a.URI))
}

func (s *Store) CreateLocalAccount(ctx context.Context, p *Person, privateKeyPEM string) (*Account, error) {
	a, err := p.account()
	if err != nil {
		return nil, err
	}
	if privateKeyPEM == "" {
		return nil, fmt.Errorf("local account %q: missing private key: %w", a.URI, ErrInvalid)
	}
	a.Local = true
	a.PrivateKey = privateKeyPEM
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		local, err := first[Account](ctx, tx, "is_local = ?", true)
		if err != nil {
			return err
		}
		if local != nil {
			return fmt.Errorf("local account %q: %w", local.URI, ErrAlreadyExists)
		}
		return insert(ctx, tx, "create local account", a)
	})
	if err != nil {
		return nil, err
	}
	return reread(s.AccountByURI(ctx, a.URI))
}

func (s *Store) AccountByID(ctx context.Context, id AccountID) (*Account, error) {
	return first[Account](ctx, s.db, "id = ?", id)
}

func (s *Store) AccountByURI(ctx context.Context, uri string) (*Account, error) {
	return first[Account](ctx, s.db, "uri = ?", uri)
}

func (s *Store) LocalAccount(ctx context.Context) (*Account, error) {
	a, err := first[Account](ctx, s.db, "is_local = ?", true)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("local account: %w", ErrNotFound)
	}
	return a, nil
}

// DeleteAccountByID deletes the account and, through foreign keys, its
// follows and notes.
func (s *Store) DeleteAccountByID(ctx context.Context, id AccountID) error {
	return affected("delete account", s.db.WithContext(ctx).Delete(&Account{}, "id = ?", id))
}
