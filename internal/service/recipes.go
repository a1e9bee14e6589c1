package service

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/media"
)

type (
	IngredientAmount struct {
		ID     uint64 `json:"id" validate:"required"`
		Amount int    `json:"amount" validate:"min=1"`
	}

	// RecipeInput is the write shape for both create and update. Update replaces the
	// ingredient and tag lists wholesale, so both are always required.
	RecipeInput struct {
		Name        string             `json:"name" validate:"required,max=200"`
		Text        string             `json:"text" validate:"required"`
		CookingTime int                `json:"cooking_time" validate:"min=1"`
		Image       string             `json:"image"`
		Ingredients []IngredientAmount `json:"ingredients" validate:"required,min=1,dive"`
		Tags        []uint64           `json:"tags" validate:"required,min=1"`
	}

	RecipeFilter struct {
		Page      Page
		TagSlugs  []string
		AuthorID  uint64
		Favorited bool
		InCart    bool
	}

	Recipes struct {
		db        *gorm.DB
		logger    *zap.SugaredLogger
		validate  *validator.Validate
		images    *media.Decoder
		relations *Relations
		enricher  *Enricher
		pageSize  int
	}
)

func NewRecipes(
	cfg *config.Config,
	gdb *gorm.DB,
	l *zap.SugaredLogger,
	v *validator.Validate,
	images *media.Decoder,
	rel *Relations,
	enricher *Enricher,
) *Recipes {
	return &Recipes{
		db:        gdb,
		logger:    l,
		validate:  v,
		images:    images,
		relations: rel,
		enricher:  enricher,
		pageSize:  cfg.PageSize,
	}
}

func (s *Recipes) Create(ctx context.Context, author *db.User, in RecipeInput) (*RecipeView, error) {
	if author == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	img, err := s.check(in)
	if err != nil {
		return nil, err
	}

	recipe := db.Recipe{
		AuthorID:    author.ID,
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
		PubDate:     time.Now().UTC(),
	}
	if img != nil {
		recipe.Image = img.Data
		recipe.ImageContentType = img.ContentType
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}
		if res := tx.Omit(clause.Associations).Create(&recipe); res.Error != nil {
			return errors.Wrap(res.Error, "create recipe")
		}
		return writeComposition(tx, recipe.ID, in)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("recipe created", "recipe_id", recipe.ID, "author_id", author.ID)
	return s.Get(ctx, author, recipe.ID)
}

// Update replaces scalars, then clears and rebuilds ingredient lines and tag links in
// the same transaction. An omitted image keeps the stored one.
func (s *Recipes) Update(ctx context.Context, user *db.User, id uint64, in RecipeInput) (*RecipeView, error) {
	if user == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	img, err := s.check(in)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownRecipe(tx, user, id); err != nil {
			return err
		}
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         in.Name,
			"text":         in.Text,
			"cooking_time": in.CookingTime,
		}
		if img != nil {
			updates["image"] = img.Data
			updates["image_content_type"] = img.ContentType
		}
		if res := tx.Model(&db.Recipe{}).Where("id = ?", id).Updates(updates); res.Error != nil {
			return errors.Wrap(res.Error, "update recipe")
		}

		if res := tx.Where("recipe_id = ?", id).Delete(&db.RecipeIngredient{}); res.Error != nil {
			return errors.Wrap(res.Error, "clear ingredient lines")
		}
		if res := tx.Where("recipe_id = ?", id).Delete(&db.RecipeTag{}); res.Error != nil {
			return errors.Wrap(res.Error, "clear tags")
		}
		return writeComposition(tx, id, in)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("recipe updated", "recipe_id", id, "author_id", user.ID)
	return s.Get(ctx, user, id)
}

func (s *Recipes) Delete(ctx context.Context, user *db.User, id uint64) error {
	if user == nil {
		return newError(ErrUnauthorized, "authentication required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownRecipe(tx, user, id); err != nil {
			return err
		}
		for _, dep := range []interface{}{&db.RecipeTag{}, &db.FavoriteRecipe{}, &db.ShoppingCartEntry{}, &db.RecipeIngredient{}} {
			if res := tx.Where("recipe_id = ?", id).Delete(dep); res.Error != nil {
				return errors.Wrap(res.Error, "delete recipe dependents")
			}
		}
		if res := tx.Delete(&db.Recipe{}, id); res.Error != nil {
			return errors.Wrap(res.Error, "delete recipe")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("recipe deleted", "recipe_id", id, "author_id", user.ID)
	return nil
}

func (s *Recipes) Get(ctx context.Context, viewer *db.User, id uint64) (*RecipeView, error) {
	recipes, err := s.load(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, notFoundErr("recipe %d not found", id)
	}

	flags, err := s.enricher.Recipes(ctx, viewer, recipes)
	if err != nil {
		return nil, err
	}
	v := recipeView(&recipes[0], flags)
	return &v, nil
}

func (s *Recipes) List(ctx context.Context, viewer *db.User, f RecipeFilter) (*RecipePage, error) {
	if f.Page.Limit <= 0 {
		f.Page.Limit = s.pageSize
	}

	conds, err := s.conditions(viewer, f)
	if err != nil {
		return nil, err
	}

	countQ := squirrel.Select("COUNT(*)").From("recipes r")
	idsQ := squirrel.Select("r.id").From("recipes r").
		OrderBy("r.pub_date DESC", "r.id DESC").
		Limit(uint64(f.Page.Limit)).
		Offset(uint64(f.Page.offset()))
	for _, c := range conds {
		countQ = countQ.Where(c)
		idsQ = idsQ.Where(c)
	}

	var total int64
	sql, args, err := countQ.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build count sql")
	}
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&total); res.Error != nil {
		return nil, errors.Wrap(res.Error, "count recipes")
	}

	ids := make([]uint64, 0, f.Page.Limit)
	sql, args, err = idsQ.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list sql")
	}
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&ids); res.Error != nil {
		return nil, errors.Wrap(res.Error, "list recipes")
	}

	recipes, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	flags, err := s.enricher.Recipes(ctx, viewer, recipes)
	if err != nil {
		return nil, err
	}

	page := &RecipePage{Count: total, Results: make([]RecipeView, len(recipes))}
	for i := range recipes {
		page.Results[i] = recipeView(&recipes[i], flags)
	}
	return page, nil
}

func (s *Recipes) Image(ctx context.Context, id uint64) ([]byte, string, error) {
	var recipe db.Recipe
	res := s.db.WithContext(ctx).Select("id", "image", "image_content_type").First(&recipe, id)
	if res.Error != nil {
		return nil, "", notFoundOr(res.Error, "recipe", id)
	}
	if recipe.ImageContentType == "" {
		return nil, "", notFoundErr("recipe %d has no image", id)
	}
	return recipe.Image, recipe.ImageContentType, nil
}

// conditions builds the WHERE clauses shared by the count and page queries.
// Relation filters are ignored for anonymous viewers.
func (s *Recipes) conditions(viewer *db.User, f RecipeFilter) ([]squirrel.Sqlizer, error) {
	conds := make([]squirrel.Sqlizer, 0, 4)
	if len(f.TagSlugs) > 0 {
		args := make([]interface{}, len(f.TagSlugs))
		for i := range f.TagSlugs {
			args[i] = f.TagSlugs[i]
		}
		conds = append(conds, squirrel.Expr(
			"r.id IN (SELECT rt.recipe_id FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id WHERE t.slug IN ("+
				squirrel.Placeholders(len(args))+"))", args...))
	}
	if f.AuthorID != 0 {
		conds = append(conds, squirrel.Eq{"r.author_id": f.AuthorID})
	}
	if viewer == nil {
		return conds, nil
	}
	if f.Favorited {
		sql, args, err := s.relations.Favorites.ownedBy(viewer.ID).ToSql()
		if err != nil {
			return nil, errors.Wrap(err, "build favorites filter")
		}
		conds = append(conds, squirrel.Expr("r.id IN ("+sql+")", args...))
	}
	if f.InCart {
		sql, args, err := s.relations.Cart.ownedBy(viewer.ID).ToSql()
		if err != nil {
			return nil, errors.Wrap(err, "build shopping cart filter")
		}
		conds = append(conds, squirrel.Expr("r.id IN ("+sql+")", args...))
	}
	return conds, nil
}

// load fetches recipes with author, tags and ordered lines, keeping the order of ids.
// Each association costs one query regardless of len(ids).
func (s *Recipes) load(ctx context.Context, ids []uint64) ([]db.Recipe, error) {
	if len(ids) == 0 {
		return []db.Recipe{}, nil
	}

	found := make([]db.Recipe, 0, len(ids))
	res := s.db.WithContext(ctx).
		Omit("image").
		Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.id") }).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Preload("Lines.Ingredient").
		Where("id IN ?", ids).
		Find(&found)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load recipes")
	}

	byID := make(map[uint64]int, len(found))
	for i := range found {
		byID[found[i].ID] = i
	}
	recipes := make([]db.Recipe, 0, len(found))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			recipes = append(recipes, found[i])
		}
	}
	return recipes, nil
}

// check validates the input shape and decodes the image. Nothing touches the store.
func (s *Recipes) check(in RecipeInput) (*media.Image, error) {
	if err := checkStruct(s.validate, in); err != nil {
		return nil, err
	}

	seen := make(map[uint64]bool, len(in.Ingredients))
	for _, line := range in.Ingredients {
		if seen[line.ID] {
			return nil, validationErr("ingredient %d is listed more than once", line.ID)
		}
		seen[line.ID] = true
	}
	seenTags := make(map[uint64]bool, len(in.Tags))
	for _, id := range in.Tags {
		if seenTags[id] {
			return nil, validationErr("tag %d is listed more than once", id)
		}
		seenTags[id] = true
	}

	if in.Image == "" {
		return nil, nil
	}
	img, err := s.images.DecodeDataURI(in.Image)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return nil, validationErr("image: %s", err.Error())
		}
		return nil, err
	}
	return img, nil
}

// checkRefs verifies every referenced ingredient and tag exists.
func (s *Recipes) checkRefs(tx *gorm.DB, in RecipeInput) error {
	ingredientIDs := make([]uint64, len(in.Ingredients))
	for i := range in.Ingredients {
		ingredientIDs[i] = in.Ingredients[i].ID
	}
	if missing, ok, err := missingIDs(tx, &db.Ingredient{}, ingredientIDs); err != nil {
		return errors.Wrap(err, "check ingredients")
	} else if ok {
		return notFoundErr("ingredient %d not found", missing)
	}

	if missing, ok, err := missingIDs(tx, &db.Tag{}, in.Tags); err != nil {
		return errors.Wrap(err, "check tags")
	} else if ok {
		return notFoundErr("tag %d not found", missing)
	}
	return nil
}

// missingIDs reports the first id of ids absent from model's table.
func missingIDs(tx *gorm.DB, model interface{}, ids []uint64) (uint64, bool, error) {
	found := make([]uint64, 0, len(ids))
	if res := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found); res.Error != nil {
		return 0, false, res.Error
	}
	present := make(map[uint64]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func ownRecipe(tx *gorm.DB, user *db.User, id uint64) error {
	var recipe db.Recipe
	if res := tx.Select("id", "author_id").First(&recipe, id); res.Error != nil {
		return notFoundOr(res.Error, "recipe", id)
	}
	if recipe.AuthorID != user.ID {
		return newError(ErrForbidden, "only the author can change recipe %d", id)
	}
	return nil
}

func writeComposition(tx *gorm.DB, recipeID uint64, in RecipeInput) error {
	lines := make([]db.RecipeIngredient, len(in.Ingredients))
	for i, line := range in.Ingredients {
		lines[i] = db.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.ID,
			Amount:       line.Amount,
			Position:     i,
		}
	}
	if res := tx.Omit(clause.Associations).Create(&lines); res.Error != nil {
		return errors.Wrap(res.Error, "create ingredient lines")
	}

	links := make([]db.RecipeTag, len(in.Tags))
	for i, id := range in.Tags {
		links[i] = db.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	if res := tx.Create(&links); res.Error != nil {
		return errors.Wrap(res.Error, "link tags")
	}
	return nil
}
