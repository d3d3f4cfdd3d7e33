package models

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockPerson returns the actor document of name@host.
func MockPerson(name, host string) *Person {
	id := fmt.Sprintf("https://%s/users/%s", host, name)
	return &Person{
		ID:                id,
		Type:              "Person",
		PreferredUsername: name,
		Inbox:             id + "/inbox",
		Outbox:            id + "/outbox",
		Endpoints: &Endpoints{
			SharedInbox: fmt.Sprintf("https://%s/inbox", host),
		},
		PublicKey: PublicKey{
			ID:           id + "#main-key",
			Owner:        id,
			PublicKeyPem: "-----BEGIN PUBLIC KEY-----\n" + name + "\n-----END PUBLIC KEY-----\n",
		},
	}
}

var testDBs atomic.Int64

// setupTestDB returns a fresh, migrated, in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, testDBs.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(err)

	sqlDB, err := db.DB()
	require.NoError(err)
	// shared cache connections lock each other out of tables; serialise.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}
