package authgate_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/authgate/authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, authgate.EnsureSchema(context.Background(), db))
	return db
}

var (
	hashOnce   sync.Once
	secretHash string
)

// hashing at cost 14 is slow, share one digest of "secret" across tests
func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := authgate.HashPassword("secret")
		if err != nil {
			t.Fatal(err)
		}
		secretHash = h
	})
	return secretHash
}

func seedUser(t *testing.T, store authgate.UserStore, username string, admin bool) *authgate.User {
	t.Helper()

	user := &authgate.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: testPasswordHash(t),
		IsAdmin:      admin,
	}
	require.NoError(t, store.AddUser(context.Background(), user))
	return user
}

func TestStoreAddUser(t *testing.T) {
	store := authgate.NewUserStore(newTestDB(t), nil)
	ctx := context.Background()

	seedUser(t, store, "alice", true)

	t.Run("duplicate username conflicts", func(t *testing.T) {
		err := store.AddUser(ctx, &authgate.User{
			Username:     "alice",
			Email:        "other@example.com",
			PasswordHash: testPasswordHash(t),
		})
		assert.ErrorIs(t, err, authgate.ErrUsernameTaken)
	})
}

func TestStoreFindUser(t *testing.T) {
	store := authgate.NewUserStore(newTestDB(t), nil)
	ctx := context.Background()

	seedUser(t, store, "alice", false)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := store.FindUser(ctx, authgate.Credentials{Username: "alice", Password: "secret"})
		assert.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		_, errWrongPass := store.FindUser(ctx, authgate.Credentials{Username: "alice", Password: "nope"})
		_, errNoUser := store.FindUser(ctx, authgate.Credentials{Username: "nobody", Password: "nope"})

		assert.ErrorIs(t, errWrongPass, authgate.ErrNotFound)
		assert.ErrorIs(t, errNoUser, authgate.ErrNotFound)
		assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
	})
}

func TestStoreFindUserByToken(t *testing.T) {
	store := authgate.NewUserStore(newTestDB(t), nil)
	ctx := context.Background()

	user := seedUser(t, store, "alice", false)
	user.Token = "issued-token-string"
	_, err := store.UpdateUser(ctx, user)
	require.NoError(t, err)

	t.Run("exact match", func(t *testing.T) {
		found, err := store.FindUserByToken(ctx, "issued-token-string")
		assert.NoError(t, err)
		assert.Equal(t, "alice", found.Username)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := store.FindUserByToken(ctx, "some-other-token")
		assert.ErrorIs(t, err, authgate.ErrNotFound)
	})

	t.Run("empty token never matches a user without one", func(t *testing.T) {
		seedUser(t, store, "bob", false)

		_, err := store.FindUserByToken(ctx, "")
		assert.ErrorIs(t, err, authgate.ErrNotFound)
	})
}

func TestStoreUpdateUser(t *testing.T) {
	store := authgate.NewUserStore(newTestDB(t), nil)
	ctx := context.Background()

	user := seedUser(t, store, "alice", false)

	t.Run("overwrites the token", func(t *testing.T) {
		user.Token = "first-token"
		_, err := store.UpdateUser(ctx, user)
		require.NoError(t, err)

		user.Token = "second-token"
		_, err = store.UpdateUser(ctx, user)
		require.NoError(t, err)

		_, err = store.FindUserByToken(ctx, "first-token")
		assert.ErrorIs(t, err, authgate.ErrNotFound, "previous token is revoked")

		found, err := store.FindUserByToken(ctx, "second-token")
		assert.NoError(t, err)
		assert.Equal(t, "alice", found.Username)
	})

	t.Run("unknown primary key", func(t *testing.T) {
		_, err := store.UpdateUser(ctx, &authgate.User{
			Username:     "ghost",
			Email:        "ghost@example.com",
			PasswordHash: testPasswordHash(t),
		})
		assert.ErrorIs(t, err, authgate.ErrNotFound)
	})
}

func TestStoreDeleteUser(t *testing.T) {
	store := authgate.NewUserStore(newTestDB(t), nil)
	ctx := context.Background()

	user := seedUser(t, store, "alice", false)
	user.Token = "live-token"
	_, err := store.UpdateUser(ctx, user)
	require.NoError(t, err)

	t.Run("unknown username", func(t *testing.T) {
		assert.ErrorIs(t, store.DeleteUser(ctx, "ghost"), authgate.ErrNotFound)
	})

	t.Run("removes row and token", func(t *testing.T) {
		assert.NoError(t, store.DeleteUser(ctx, "alice"))

		_, err := store.FindUser(ctx, authgate.Credentials{Username: "alice", Password: "secret"})
		assert.ErrorIs(t, err, authgate.ErrNotFound)

		_, err = store.FindUserByToken(ctx, "live-token")
		assert.ErrorIs(t, err, authgate.ErrNotFound)
	})
}

func TestStoreListUsers(t *testing.T) {
	store := authgate.NewUserStore(newTestDB(t), nil)
	ctx := context.Background()

	users, err := store.ListUsers(ctx)
	assert.NoError(t, err)
	assert.Empty(t, users)

	seedUser(t, store, "bob", false)
	seedUser(t, store, "alice", true)

	users, err = store.ListUsers(ctx)
	assert.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}
