package service

import (
	"context"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

// Toggles exposes the favorite, shopping cart and subscription relations in their
// caller-facing projections.
type Toggles struct {
	relations *Relations
	users     *Users
}

func NewToggles(rel *Relations, users *Users) *Toggles {
	return &Toggles{relations: rel, users: users}
}

func (s *Toggles) AddFavorite(ctx context.Context, user *db.User, recipeID uint64) (*RecipeShort, error) {
	return addRecipe(ctx, s.relations.Favorites, user, recipeID)
}

func (s *Toggles) RemoveFavorite(ctx context.Context, user *db.User, recipeID uint64) error {
	if user == nil {
		return newError(ErrUnauthorized, "authentication required")
	}
	return s.relations.Favorites.Remove(ctx, user.ID, recipeID)
}

func (s *Toggles) AddToCart(ctx context.Context, user *db.User, recipeID uint64) (*RecipeShort, error) {
	return addRecipe(ctx, s.relations.Cart, user, recipeID)
}

func (s *Toggles) RemoveFromCart(ctx context.Context, user *db.User, recipeID uint64) error {
	if user == nil {
		return newError(ErrUnauthorized, "authentication required")
	}
	return s.relations.Cart.Remove(ctx, user.ID, recipeID)
}

// Subscribe returns the followed author with up to recipesLimit of their recipes.
// A non-positive limit returns all of them.
func (s *Toggles) Subscribe(ctx context.Context, user *db.User, authorID uint64, recipesLimit int) (*AuthorView, error) {
	if user == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	author, err := s.relations.Subscriptions.Add(ctx, user.ID, authorID)
	if err != nil {
		return nil, err
	}

	views, err := s.users.authorViews(ctx, []db.User{*author}, map[uint64]bool{author.ID: true}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Toggles) Unsubscribe(ctx context.Context, user *db.User, authorID uint64) error {
	if user == nil {
		return newError(ErrUnauthorized, "authentication required")
	}
	return s.relations.Subscriptions.Remove(ctx, user.ID, authorID)
}

func addRecipe[R any](ctx context.Context, rel *Relation[db.Recipe, R], user *db.User, recipeID uint64) (*RecipeShort, error) {
	if user == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	recipe, err := rel.Add(ctx, user.ID, recipeID)
	if err != nil {
		return nil, err
	}
	short := recipeShort(recipe)
	return &short, nil
}
