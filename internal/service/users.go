package service

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

type Users struct {
	db        *gorm.DB
	logger    *zap.SugaredLogger
	relations *Relations
	enricher  *Enricher
	pageSize  int
}

func NewUsers(cfg *config.Config, gdb *gorm.DB, l *zap.SugaredLogger, rel *Relations, enricher *Enricher) *Users {
	return &Users{
		db:        gdb,
		logger:    l,
		relations: rel,
		enricher:  enricher,
		pageSize:  cfg.PageSize,
	}
}

func (s *Users) Me(user *db.User) (*UserView, error) {
	if user == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	v := userView(user, false)
	return &v, nil
}

func (s *Users) Get(ctx context.Context, viewer *db.User, id uint64) (*UserView, error) {
	var user db.User
	if res := s.db.WithContext(ctx).First(&user, id); res.Error != nil {
		return nil, notFoundOr(res.Error, "user", id)
	}
	subscribed, err := s.enricher.Authors(ctx, viewer, []uint64{user.ID})
	if err != nil {
		return nil, err
	}
	v := userView(&user, subscribed[user.ID])
	return &v, nil
}

func (s *Users) List(ctx context.Context, viewer *db.User, page Page) (*UserPage, error) {
	if page.Limit <= 0 {
		page.Limit = s.pageSize
	}

	var total int64
	if res := s.db.WithContext(ctx).Model(&db.User{}).Count(&total); res.Error != nil {
		return nil, errors.Wrap(res.Error, "count users")
	}

	users := make([]db.User, 0, page.Limit)
	res := s.db.WithContext(ctx).Order("id").Offset(page.offset()).Limit(page.Limit).Find(&users)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list users")
	}

	ids := make([]uint64, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := s.enricher.Authors(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}

	out := &UserPage{Count: total, Results: make([]UserView, len(users))}
	for i := range users {
		out.Results[i] = userView(&users[i], subscribed[users[i].ID])
	}
	return out, nil
}

// Subscriptions lists the authors viewer follows, newest subscription first, each with
// up to recipesLimit recipes.
func (s *Users) Subscriptions(ctx context.Context, viewer *db.User, page Page, recipesLimit int) (*AuthorPage, error) {
	if viewer == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	if page.Limit <= 0 {
		page.Limit = s.pageSize
	}

	ids, total, err := s.relations.Subscriptions.Targets(ctx, viewer.ID, page)
	if err != nil {
		return nil, err
	}

	found := make([]db.User, 0, len(ids))
	if len(ids) > 0 {
		if res := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found); res.Error != nil {
			return nil, errors.Wrap(res.Error, "load authors")
		}
	}
	byID := make(map[uint64]db.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	authors := make([]db.User, 0, len(ids))
	subscribed := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			authors = append(authors, u)
			subscribed[id] = true
		}
	}

	views, err := s.authorViews(ctx, authors, subscribed, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &AuthorPage{Count: total, Results: views}, nil
}

type (
	authorRecipeRow struct {
		ID               uint64
		AuthorID         uint64
		Name             string
		CookingTime      int
		ImageContentType string
	}

	authorCountRow struct {
		AuthorID uint64
		N        int64
	}
)

// authorViews attaches each author's newest recipes and recipe count using two queries
// for the whole slice. The cap is applied per author with a window function.
func (s *Users) authorViews(ctx context.Context, authors []db.User, subscribed map[uint64]bool, recipesLimit int) ([]AuthorView, error) {
	views := make([]AuthorView, len(authors))
	if len(authors) == 0 {
		return views, nil
	}

	ids := make([]uint64, len(authors))
	for i := range authors {
		ids[i] = authors[i].ID
	}

	ranked := squirrel.
		Select("id", "author_id", "name", "cooking_time", "image_content_type",
			"ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY pub_date DESC, id DESC) AS rn").
		From("recipes").
		Where(squirrel.Eq{"author_id": ids})
	q := squirrel.
		Select("id", "author_id", "name", "cooking_time", "image_content_type").
		FromSelect(ranked, "ranked").
		OrderBy("author_id", "rn")
	if recipesLimit > 0 {
		q = q.Where(squirrel.LtOrEq{"rn": recipesLimit})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build author recipes sql")
	}
	rows := make([]authorRecipeRow, 0)
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows); res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan author recipes")
	}

	sql, args, err = squirrel.
		Select("author_id", "COUNT(*) AS n").
		From("recipes").
		Where(squirrel.Eq{"author_id": ids}).
		GroupBy("author_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build author counts sql")
	}
	counts := make([]authorCountRow, 0, len(ids))
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&counts); res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan author counts")
	}

	recipes := make(map[uint64][]RecipeShort, len(ids))
	for _, row := range rows {
		r := db.Recipe{
			GormForkedModel:  db.GormForkedModel{ID: row.ID},
			Name:             row.Name,
			CookingTime:      row.CookingTime,
			ImageContentType: row.ImageContentType,
		}
		recipes[row.AuthorID] = append(recipes[row.AuthorID], recipeShort(&r))
	}
	total := make(map[uint64]int64, len(counts))
	for _, c := range counts {
		total[c.AuthorID] = c.N
	}

	for i := range authors {
		id := authors[i].ID
		views[i] = AuthorView{
			UserView:     userView(&authors[i], subscribed[id]),
			Recipes:      recipes[id],
			RecipesCount: total[id],
		}
		if views[i].Recipes == nil {
			views[i].Recipes = []RecipeShort{}
		}
	}
	return views, nil
}
