package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db/dbtest"
)

func TestUsersGetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice")
	bob := dbtest.User(t, f.db, "bob")
	_, err := f.relations.Subscriptions.Add(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	got, err := f.users.Get(ctx, alice, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "bob@example.com", got.Email)
	assert.True(t, got.IsSubscribed)

	got, err = f.users.Get(ctx, nil, bob.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSubscribed)

	_, err = f.users.Get(ctx, alice, 404)
	assert.True(t, errors.Is(err, ErrNotFound))

	page, err := f.users.List(ctx, alice, Page{Number: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.False(t, page.Results[0].IsSubscribed)
	assert.True(t, page.Results[1].IsSubscribed)

	me, err := f.users.Me(alice)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, me.ID)
	_, err = f.users.Me(nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := dbtest.User(t, f.db, "reader")
	alice := dbtest.User(t, f.db, "alice")
	bob := dbtest.User(t, f.db, "bob")
	carol := dbtest.User(t, f.db, "carol")
	flour := dbtest.Ingredient(t, f.db, "flour", "g")

	a1 := f.recipe(t, alice, "a1", amount(flour, 1))
	a2 := f.recipe(t, alice, "a2", amount(flour, 1))
	a3 := f.recipe(t, alice, "a3", amount(flour, 1))
	f.recipe(t, carol, "c1", amount(flour, 1))

	got, err := f.toggles.Subscribe(ctx, reader, alice.ID, 2)
	require.NoError(t, err)
	assert.True(t, got.IsSubscribed)
	assert.EqualValues(t, 3, got.RecipesCount)
	require.Len(t, got.Recipes, 2)
	assert.Equal(t, a3.ID, got.Recipes[0].ID)
	assert.Equal(t, a2.ID, got.Recipes[1].ID)

	_, err = f.toggles.Subscribe(ctx, reader, alice.ID, 2)
	assert.True(t, errors.Is(err, ErrConflict))
	_, err = f.toggles.Subscribe(ctx, reader, reader.ID, 2)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.toggles.Subscribe(ctx, reader, bob.ID, 0)
	require.NoError(t, err)

	page, err := f.users.Subscriptions(ctx, reader, Page{Number: 1}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)

	assert.Equal(t, bob.ID, page.Results[0].ID)
	assert.Equal(t, []RecipeShort{}, page.Results[0].Recipes)
	assert.EqualValues(t, 0, page.Results[0].RecipesCount)

	assert.Equal(t, alice.ID, page.Results[1].ID)
	assert.True(t, page.Results[1].IsSubscribed)
	assert.Equal(t, []uint64{a3.ID, a2.ID, a1.ID}, []uint64{
		page.Results[1].Recipes[0].ID, page.Results[1].Recipes[1].ID, page.Results[1].Recipes[2].ID,
	})

	page, err = f.users.Subscriptions(ctx, reader, Page{Number: 2, Limit: 1}, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, alice.ID, page.Results[0].ID)
	assert.Len(t, page.Results[0].Recipes, 1)

	_, err = f.users.Subscriptions(ctx, nil, Page{}, 0)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
