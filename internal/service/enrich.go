package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

type (
	MembershipLookup interface {
		Members(ctx context.Context, ownerID uint64, targetIDs []uint64) (map[uint64]bool, error)
	}

	// Enricher computes viewer-relative flags for a whole page at once: one membership
	// query per relation, whatever the page size.
	Enricher struct {
		favorites     MembershipLookup
		cart          MembershipLookup
		subscriptions MembershipLookup
	}

	RecipeFlags struct {
		Favorited         map[uint64]bool
		InCart            map[uint64]bool
		SubscribedAuthors map[uint64]bool
	}
)

func NewEnricher(rel *Relations) *Enricher {
	return newEnricher(rel.Favorites, rel.Cart, rel.Subscriptions)
}

func newEnricher(favorites, cart, subscriptions MembershipLookup) *Enricher {
	return &Enricher{favorites: favorites, cart: cart, subscriptions: subscriptions}
}

// Recipes flags a page of recipes. A nil viewer is anonymous and gets all flags false
// without touching the relation tables.
func (e *Enricher) Recipes(ctx context.Context, viewer *db.User, recipes []db.Recipe) (RecipeFlags, error) {
	flags := RecipeFlags{
		Favorited:         map[uint64]bool{},
		InCart:            map[uint64]bool{},
		SubscribedAuthors: map[uint64]bool{},
	}
	if viewer == nil || len(recipes) == 0 {
		return flags, nil
	}

	recipeIDs := make([]uint64, len(recipes))
	authorIDs := make([]uint64, 0, len(recipes))
	seen := make(map[uint64]bool, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		if !seen[recipes[i].AuthorID] {
			seen[recipes[i].AuthorID] = true
			authorIDs = append(authorIDs, recipes[i].AuthorID)
		}
	}

	var err error
	if flags.Favorited, err = e.favorites.Members(ctx, viewer.ID, recipeIDs); err != nil {
		return flags, errors.Wrap(err, "favorites")
	}
	if flags.InCart, err = e.cart.Members(ctx, viewer.ID, recipeIDs); err != nil {
		return flags, errors.Wrap(err, "shopping cart")
	}
	if flags.SubscribedAuthors, err = e.subscriptions.Members(ctx, viewer.ID, authorIDs); err != nil {
		return flags, errors.Wrap(err, "subscriptions")
	}
	return flags, nil
}

// Authors returns the set of authorIDs the viewer is subscribed to.
func (e *Enricher) Authors(ctx context.Context, viewer *db.User, authorIDs []uint64) (map[uint64]bool, error) {
	if viewer == nil || len(authorIDs) == 0 {
		return map[uint64]bool{}, nil
	}
	subscribed, err := e.subscriptions.Members(ctx, viewer.ID, authorIDs)
	if err != nil {
		return nil, errors.Wrap(err, "subscriptions")
	}
	return subscribed, nil
}
