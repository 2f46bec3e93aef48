package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	store := newTestStore(t)

	exists, err := store.AtLeastOneUserExists()
	assert.Nil(t, err)
	assert.False(t, exists)

	user := &User{Email: " Tony@Stark.com ", Password: "very-secure"}
	require.Nil(t, store.CreateUser(user))
	assert.Equal(t, "tony@stark.com", user.Email)
	assert.NotEqual(t, "very-secure", user.Password, "Password should be stored hashed")

	exists, err = store.AtLeastOneUserExists()
	assert.Nil(t, err)
	assert.True(t, exists)

	cases := []struct {
		description string
		email       string
		password    string
		expectedErr error
	}{
		{"Should authenticate with the right password", "tony@stark.com", "very-secure", nil},
		{"Should ignore email case", "TONY@stark.com", "very-secure", nil},
		{"Should reject a wrong password", "tony@stark.com", "wrong", ErrInvalidCredentials},
		{"Should reject an unknown email", "peter@parker.com", "very-secure", ErrInvalidCredentials},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			found, err := store.Authenticate(c.email, c.password)
			if c.expectedErr != nil {
				assert.ErrorIs(t, err, c.expectedErr)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, user.ID, found.ID)
			assert.Empty(t, found.Password, "Password should not be loaded")
		})
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)

	require.Nil(t, store.CreateUser(&User{Email: "tony@stark.com", Password: "very-secure"}))
	assert.NotNil(t, store.CreateUser(&User{Email: "tony@stark.com", Password: "other"}))
}
