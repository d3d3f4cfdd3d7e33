package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fediscus/fediscus/internal/crypto"
	"github.com/fediscus/fediscus/models"
)

type CreateLocalAccountCmd struct {
	Username       string `help:"username of the relay's actor" default:"fediscus" env:"FEDISCUS_USERNAME"`
	Domain         string `required:"" help:"domain name of the relay" env:"FEDISCUS_DOMAIN"`
	PrivateKeyFile string `help:"PEM encoded RSA private key to use instead of generating one" type:"existingfile"`
}

func (c *CreateLocalAccountCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}

	keypair, err := c.keypair()
	if err != nil {
		return err
	}
	person := localPerson(c.Username, c.Domain, string(keypair.PublicKey))
	account, err := models.NewStorage(db).CreateLocalAccount(context.Background(), person, string(keypair.PrivateKey))
	if err != nil {
		return err
	}
	ctx.Logger.Info("created local account", "uri", account.URI, "acct", account.Acct())
	return nil
}

func (c *CreateLocalAccountCmd) keypair() (*crypto.Keypair, error) {
	if c.PrivateKeyFile == "" {
		return crypto.GenerateRSAKeypair()
	}
	pem, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return nil, err
	}
	return crypto.KeypairFromPrivateKey(pem)
}

// localPerson returns the actor document of the relay's own account.
func localPerson(username, domain, publicKeyPEM string) *models.Person {
	id := fmt.Sprintf("https://%s/users/%s", domain, username)
	return &models.Person{
		ID:                id,
		Type:              "Person",
		PreferredUsername: username,
		Inbox:             id + "/inbox",
		Outbox:            id + "/outbox",
		Endpoints: &models.Endpoints{
			SharedInbox: fmt.Sprintf("https://%s/inbox", domain),
		},
		PublicKey: models.PublicKey{
			ID:           id + "#main-key",
			Owner:        id,
			PublicKeyPem: publicKeyPEM,
		},
	}
}
