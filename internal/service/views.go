package service

import (
	"fmt"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

// Read projections. Write shapes live next to the operations that accept them.
type (
	TagView struct {
		ID    uint64 `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Slug  string `json:"slug"`
	}

	IngredientView struct {
		ID              uint64 `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}

	RecipeIngredientView struct {
		ID              uint64 `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	UserView struct {
		ID           uint64 `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		IsSubscribed bool   `json:"is_subscribed"`
	}

	RecipeView struct {
		ID               uint64                 `json:"id"`
		Tags             []TagView              `json:"tags"`
		Author           UserView               `json:"author"`
		Ingredients      []RecipeIngredientView `json:"ingredients"`
		IsFavorited      bool                   `json:"is_favorited"`
		IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
		Name             string                 `json:"name"`
		Image            *string                `json:"image"`
		Text             string                 `json:"text"`
		CookingTime      int                    `json:"cooking_time"`
	}

	RecipeShort struct {
		ID          uint64  `json:"id"`
		Name        string  `json:"name"`
		Image       *string `json:"image"`
		CookingTime int     `json:"cooking_time"`
	}

	AuthorView struct {
		UserView
		Recipes      []RecipeShort `json:"recipes"`
		RecipesCount int64         `json:"recipes_count"`
	}

	Page struct {
		Number int
		Limit  int
	}

	RecipePage struct {
		Count   int64        `json:"count"`
		Results []RecipeView `json:"results"`
	}

	UserPage struct {
		Count   int64      `json:"count"`
		Results []UserView `json:"results"`
	}

	AuthorPage struct {
		Count   int64        `json:"count"`
		Results []AuthorView `json:"results"`
	}
)

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

func imageURL(r *db.Recipe) *string {
	if r.ImageContentType == "" {
		return nil
	}
	u := fmt.Sprintf("/api/recipes/%d/image", r.ID)
	return &u
}

func tagView(t *db.Tag) TagView {
	return TagView{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func ingredientView(i *db.Ingredient) IngredientView {
	return IngredientView{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func userView(u *db.User, subscribed bool) UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func recipeShort(r *db.Recipe) RecipeShort {
	return RecipeShort{ID: r.ID, Name: r.Name, Image: imageURL(r), CookingTime: r.CookingTime}
}

func recipeView(r *db.Recipe, flags RecipeFlags) RecipeView {
	v := RecipeView{
		ID:               r.ID,
		Tags:             make([]TagView, len(r.Tags)),
		Author:           userView(&r.Author, flags.SubscribedAuthors[r.AuthorID]),
		Ingredients:      make([]RecipeIngredientView, len(r.Lines)),
		IsFavorited:      flags.Favorited[r.ID],
		IsInShoppingCart: flags.InCart[r.ID],
		Name:             r.Name,
		Image:            imageURL(r),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
	for i := range r.Tags {
		v.Tags[i] = tagView(&r.Tags[i])
	}
	for i, line := range r.Lines {
		v.Ingredients[i] = RecipeIngredientView{
			ID:              line.IngredientID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		}
	}
	return v
}
