package service

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

func TestRegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := RegisterInput{
		Email:     "cook@example.com",
		Username:  "cook",
		FirstName: "Julia",
		LastName:  "Child",
		Password:  "secret-password",
	}
	u, err := f.auth.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "cook", u.Username)

	_, err = f.auth.Register(ctx, in)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = f.auth.Login(ctx, LoginInput{Email: in.Email, Password: "wrong"})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "x"})
	assert.True(t, errors.Is(err, ErrValidation))

	first, err := f.auth.Login(ctx, LoginInput{Email: in.Email, Password: in.Password})
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, LoginInput{Email: in.Email, Password: in.Password})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = f.auth.Authenticate(ctx, first)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	user, err := f.auth.Authenticate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)

	require.NoError(t, f.auth.Logout(ctx, user))
	_, err = f.auth.Authenticate(ctx, second)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = f.auth.Authenticate(ctx, "")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]RegisterInput{
		"bad email":          {Email: "nope", Username: "cook", FirstName: "a", LastName: "b", Password: "p"},
		"username symbols":   {Email: "a@b.c", Username: "co ok!", FirstName: "a", LastName: "b", Password: "p"},
		"missing password":   {Email: "a@b.c", Username: "cook", FirstName: "a", LastName: "b"},
		"missing last name":  {Email: "a@b.c", Username: "cook", FirstName: "a", Password: "p"},
		"long password":      {Email: "a@b.c", Username: "cook", FirstName: "a", LastName: "b", Password: strings.Repeat("p", 100)},
		"multibyte password": {Email: "a@b.c", Username: "cook", FirstName: "a", LastName: "b", Password: strings.Repeat("é", 40)},
	}
	for name, in := range cases {
		_, err := f.auth.Register(context.Background(), in)
		assert.True(t, errors.Is(err, ErrValidation), name)

		var e *Error
		if assert.True(t, errors.As(err, &e), name) {
			assert.NotEmpty(t, e.Msg)
		}
	}
	assert.EqualValues(t, 0, f.count(t, &db.User{}))

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Email: "a@b.c", Username: "cook", FirstName: "a", LastName: "b", Password: strings.Repeat("p", 72),
	})
	assert.NoError(t, err)
}
