package service

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db/dbtest"
)

// memStore is an in-process cache.Store.
type memStore struct {
	data        map[string][]byte
	invalidated int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, ns, key string, dst interface{}) (bool, error) {
	raw, ok := m.data[ns+":"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memStore) Set(_ context.Context, ns, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	m.data[ns+":"+key] = raw
	return err
}

func (m *memStore) Invalidate(_ context.Context, ns string) error {
	m.invalidated++
	for k := range m.data {
		if strings.HasPrefix(k, ns+":") {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func TestParseIngredientsCSV(t *testing.T) {
	items, err := ParseIngredientsCSV(strings.NewReader("name,measurement_unit\nabricot,g\n\"salt, sea\", pinch\n"))
	require.NoError(t, err)
	assert.Equal(t, []db.Ingredient{
		{Name: "abricot", MeasurementUnit: "g"},
		{Name: "salt, sea", MeasurementUnit: "pinch"},
	}, items)

	items, err = ParseIngredientsCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, items)

	for name, in := range map[string]string{
		"missing column": "name,unit\nflour\n",
		"empty unit":     "name,unit\nflour,\n",
		"too long":       "name,unit\n" + strings.Repeat("x", 201) + ",g\n",
	} {
		_, err := ParseIngredientsCSV(strings.NewReader(in))
		assert.True(t, errors.Is(err, ErrValidation), name)
	}
}

func TestImportIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := newMemStore()
	f.catalog.cache = store
	dbtest.Ingredient(t, f.db, "old", "g")

	n, err := f.catalog.ImportIngredients(ctx, strings.NewReader("name,measurement_unit\nflour,g\nmilk,ml\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.invalidated)

	all, err := f.catalog.SearchIngredients(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []IngredientView{
		{ID: 1, Name: "flour", MeasurementUnit: "g"},
		{ID: 2, Name: "milk", MeasurementUnit: "ml"},
	}, all)

	author := dbtest.User(t, f.db, "author")
	flour, err := f.catalog.GetIngredient(ctx, 1)
	require.NoError(t, err)
	f.recipe(t, author, "bread", IngredientAmount{ID: flour.ID, Amount: 500})

	_, err = f.catalog.ImportIngredients(ctx, strings.NewReader("name,measurement_unit\nrice,g\n"))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.EqualValues(t, 2, f.count(t, &db.Ingredient{}))
	assert.Equal(t, 1, store.invalidated)
}

func TestSearchIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := newMemStore()
	f.catalog.cache = store
	dbtest.Ingredient(t, f.db, "Sugar", "g")
	dbtest.Ingredient(t, f.db, "sugar syrup", "ml")
	dbtest.Ingredient(t, f.db, "brown sugar", "g")
	dbtest.Ingredient(t, f.db, "50%_cream", "ml")

	names := func(vs []IngredientView) []string {
		out := make([]string, len(vs))
		for i := range vs {
			out[i] = vs[i].Name
		}
		return out
	}

	got, err := f.catalog.SearchIngredients(ctx, "SUG")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sugar", "sugar syrup"}, names(got))
	assert.Contains(t, store.data, "ingredients:sug")

	// Served from cache: a row added behind the cache's back is not visible.
	dbtest.Ingredient(t, f.db, "sugarcane", "g")
	got, err = f.catalog.SearchIngredients(ctx, "sug")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.catalog.SearchIngredients(ctx, "50%_")
	require.NoError(t, err)
	assert.Equal(t, []string{"50%_cream"}, names(got))

	got, err = f.catalog.SearchIngredients(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.catalog.GetIngredient(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.catalog.CreateTag(ctx, TagInput{Name: "Lunch", Color: "#49B64E", Slug: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, "lunch", created.Slug)

	_, err = f.catalog.CreateTag(ctx, TagInput{Name: "Lunch 2", Color: "#fff", Slug: "lunch"})
	assert.True(t, errors.Is(err, ErrConflict))

	for name, in := range map[string]TagInput{
		"bad color": {Name: "x", Color: "red", Slug: "x"},
		"bad slug":  {Name: "x", Color: "#fff", Slug: "x y"},
		"no name":   {Color: "#fff", Slug: "x"},
	} {
		_, err := f.catalog.CreateTag(ctx, in)
		assert.True(t, errors.Is(err, ErrValidation), name)
	}

	tags, err := f.catalog.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)

	got, err := f.catalog.GetTag(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	_, err = f.catalog.GetTag(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}
