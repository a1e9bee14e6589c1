package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db/dbtest"
)

func TestMergeCartLines(t *testing.T) {
	got := MergeCartLines([]CartLine{
		{IngredientID: 1, Amount: 100},
		{IngredientID: 2, Amount: 3},
		{IngredientID: 1, Amount: 50},
	})
	assert.Equal(t, map[uint64]int64{1: 150, 2: 3}, got)

	assert.Empty(t, MergeCartLines(nil))
}

func TestShoppingItemsKeepsSameNamedIngredientsApart(t *testing.T) {
	items := shoppingItems(
		map[uint64]int64{7: 2, 3: 200, 5: 1},
		[]db.Ingredient{
			{ID: 3, Name: "sugar", MeasurementUnit: "g"},
			{ID: 5, Name: "egg", MeasurementUnit: "pcs"},
			{ID: 7, Name: "sugar", MeasurementUnit: "cup"},
		},
	)
	assert.Equal(t, []ShoppingItem{
		{Name: "egg", MeasurementUnit: "pcs", Amount: 1, ingredientID: 5},
		{Name: "sugar", MeasurementUnit: "cup", Amount: 2, ingredientID: 7},
		{Name: "sugar", MeasurementUnit: "g", Amount: 200, ingredientID: 3},
	}, items)
}

func TestExportShoppingList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := dbtest.User(t, f.db, "author")
	buyer := dbtest.User(t, f.db, "buyer")
	x := dbtest.Ingredient(t, f.db, "flour", "g")
	sugarG := dbtest.Ingredient(t, f.db, "Sugar", "g")
	sugarCup := dbtest.Ingredient(t, f.db, "Sugar", "cup")

	a := f.recipe(t, author, "a", amount(x, 100), amount(sugarG, 10))
	b := f.recipe(t, author, "b", amount(x, 50), amount(sugarCup, 1))
	f.recipe(t, author, "not in cart", amount(x, 1000))

	t.Run("empty cart", func(t *testing.T) {
		items, err := f.shopping.Export(ctx, buyer)
		require.NoError(t, err)
		assert.Empty(t, items)

		var buf bytes.Buffer
		require.NoError(t, RenderShoppingText(&buf, items))
		assert.Equal(t, "Shopping list\n", buf.String())
	})

	for _, id := range []uint64{a.ID, b.ID} {
		_, err := f.toggles.AddToCart(ctx, buyer, id)
		require.NoError(t, err)
	}

	t.Run("merged by identity", func(t *testing.T) {
		items, err := f.shopping.Export(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, items, 3)

		assert.Equal(t, "Sugar", items[0].Name)
		assert.Equal(t, "cup", items[0].MeasurementUnit)
		assert.EqualValues(t, 1, items[0].Amount)
		assert.Equal(t, "Sugar", items[1].Name)
		assert.Equal(t, "g", items[1].MeasurementUnit)
		assert.EqualValues(t, 10, items[1].Amount)
		assert.Equal(t, "flour", items[2].Name)
		assert.EqualValues(t, 150, items[2].Amount)
	})

	t.Run("repeated export is identical", func(t *testing.T) {
		render := func() []byte {
			items, err := f.shopping.Export(ctx, buyer)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, RenderShoppingText(&buf, items))
			return buf.Bytes()
		}
		first := render()
		assert.Equal(t, first, render())
		assert.Equal(t, "Shopping list\n1. Sugar (cup) - 1\n2. Sugar (g) - 10\n3. flour (g) - 150\n", string(first))
	})

	t.Run("reflects live recipe", func(t *testing.T) {
		_, err := f.recipes.Update(ctx, author, b.ID, RecipeInput{
			Name: "b", Text: "x", CookingTime: 10,
			Ingredients: []IngredientAmount{amount(x, 5)},
			Tags:        []uint64{f.tag.ID},
		})
		require.NoError(t, err)

		items, err := f.shopping.Export(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Sugar", items[0].Name)
		assert.Equal(t, "flour", items[1].Name)
		assert.EqualValues(t, 105, items[1].Amount)
	})

	t.Run("csv", func(t *testing.T) {
		items, err := f.shopping.Export(ctx, buyer)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, RenderShoppingCSV(&buf, items))
		assert.Equal(t, "name,measurement_unit,amount\nSugar,g,10\nflour,g,105\n", buf.String())
	})
}

func TestExportShoppingListAnonymous(t *testing.T) {
	f := newFixture(t)
	_, err := f.shopping.Export(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
