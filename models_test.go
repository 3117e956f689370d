package authgate_test

import (
	"encoding/json"
	"testing"

	"github.com/authgate/authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPartial(t *testing.T) {
	user := authgate.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$14$something",
		IsAdmin:      true,
		Token:        "live-token",
	}

	partial := user.Partial()

	assert.Equal(t, "alice", partial.Username)
	assert.Equal(t, "alice@example.com", partial.Email)
	assert.True(t, partial.IsAdmin)
}

func TestUserSerializationNeverLeaksHash(t *testing.T) {
	user := authgate.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$14$something",
		IsAdmin:      false,
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.NotContains(t, fields, "password_hash")
	assert.NotContains(t, fields, "token", "empty token omitted")
}
