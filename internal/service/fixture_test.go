package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/cache"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/media"
)

type fixture struct {
	db        *gorm.DB
	relations *Relations
	recipes   *Recipes
	users     *Users
	toggles   *Toggles
	shopping  *ShoppingList
	catalog   *Catalog
	auth      *Auth
	tag       *db.Tag
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := dbtest.New(t)
	cfg := &config.Config{PageSize: 6, ImageMaxSide: 64, PasswordCost: bcrypt.MinCost}
	l := zap.NewNop().Sugar()
	v := NewValidator()
	rel := NewRelations(gdb, l)
	enricher := NewEnricher(rel)
	users := NewUsers(cfg, gdb, l, rel, enricher)

	return &fixture{
		db:        gdb,
		relations: rel,
		recipes:   NewRecipes(cfg, gdb, l, v, media.NewDecoder(cfg), rel, enricher),
		users:     users,
		toggles:   NewToggles(rel, users),
		shopping:  NewShoppingList(gdb, l),
		catalog:   NewCatalog(gdb, l, v, cache.Nop{}),
		auth:      NewAuth(cfg, gdb, l, v),
		tag:       dbtest.Tag(t, gdb, "breakfast"),
	}
}

// recipe creates a recipe by author with the fixture tag and the given lines.
func (f *fixture) recipe(t *testing.T, author *db.User, name string, lines ...IngredientAmount) *RecipeView {
	t.Helper()
	r, err := f.recipes.Create(context.Background(), author, RecipeInput{
		Name:        name,
		Text:        "mix and cook",
		CookingTime: 10,
		Ingredients: lines,
		Tags:        []uint64{f.tag.ID},
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) count(t *testing.T, model interface{}, where ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func amount(i *db.Ingredient, n int) IngredientAmount {
	return IngredientAmount{ID: i.ID, Amount: n}
}

func itoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}
