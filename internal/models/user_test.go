package models

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUser_Public_CopiesProfileFields(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.New(),
		Username:     "neo",
		Email:        "neo@matrix.io",
		FullName:     "Thomas Anderson",
		Avatar:       "https://cdn/a.png",
		CoverImage:   "https://cdn/c.png",
		PasswordHash: "$2a$10$hash",
		RefreshToken: "refresh",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	p := u.Public()
	require.Equal(t, u.ID, p.ID)
	require.Equal(t, u.Username, p.Username)
	require.Equal(t, u.Email, p.Email)
	require.Equal(t, u.FullName, p.FullName)
	require.Equal(t, u.Avatar, p.Avatar)
	require.Equal(t, u.CoverImage, p.CoverImage)
	require.Equal(t, now, p.CreatedAt)
}

// PublicUser не должен даже иметь полей с секретами.
func TestPublicUser_HasNoSecretFields(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeOf(PublicUser{})
	_, hasPassword := typ.FieldByName("PasswordHash")
	_, hasRefresh := typ.FieldByName("RefreshToken")
	require.False(t, hasPassword)
	require.False(t, hasRefresh)
}
