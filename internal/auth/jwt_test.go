package auth

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	user := &model.User{
		ID:         uuid.New(),
		Name:       "Asha",
		Role:       model.RoleManager,
		Department: "Engineering",
	}

	token, err := GenerateAccessToken(user, secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleManager), claims.Role)
	assert.Equal(t, "Engineering", claims.Department)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	user := &model.User{ID: uuid.New(), Role: model.RoleEmployee}
	token, err := GenerateAccessToken(user, []byte("right"), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("wrong"))
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	user := &model.User{ID: uuid.New(), Role: model.RoleEmployee}
	token, err := GenerateAccessToken(user, []byte("secret"), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("secret"))
	assert.Error(t, err)
}
