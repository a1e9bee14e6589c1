package service

import (
	"context"
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/cache"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/metrics"
)

const ingredientsNamespace = "ingredients"

var (
	tagSlugRe  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	likeEscape = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

type (
	CatalogLoader interface {
		ReplaceIngredients(ctx context.Context, items []db.Ingredient) (int, error)
	}

	TagInput struct {
		Name  string `json:"name" validate:"required,max=200"`
		Color string `json:"color" validate:"required,hexcolor"`
		Slug  string `json:"slug" validate:"required,max=200"`
	}

	Catalog struct {
		db       *gorm.DB
		logger   *zap.SugaredLogger
		validate *validator.Validate
		cache    cache.Store
		loader   CatalogLoader
	}
)

func NewCatalog(gdb *gorm.DB, l *zap.SugaredLogger, v *validator.Validate, store cache.Store) *Catalog {
	return &Catalog{
		db:       gdb,
		logger:   l,
		validate: v,
		cache:    store,
		loader:   db.NewGormCatalogLoader(gdb),
	}
}

// WithLoader swaps the bulk loader used by Import.
func (s *Catalog) WithLoader(loader CatalogLoader) *Catalog {
	s.loader = loader
	return s
}

// SearchIngredients matches name prefixes case-insensitively. An empty prefix lists
// the whole catalog.
func (s *Catalog) SearchIngredients(ctx context.Context, prefix string) ([]IngredientView, error) {
	key := strings.ToLower(prefix)

	out := make([]IngredientView, 0)
	found, err := s.cache.Get(ctx, ingredientsNamespace, key, &out)
	if err != nil {
		s.logger.Warnw("ingredient cache read failed", "err", err)
	}
	if found {
		metrics.IngredientCacheHits.Inc()
		return out, nil
	}
	metrics.IngredientCacheMisses.Inc()

	ingredients := make([]db.Ingredient, 0)
	q := s.db.WithContext(ctx).Order("name").Order("id")
	if key != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeEscape.Replace(key)+"%")
	}
	if res := q.Find(&ingredients); res.Error != nil {
		return nil, errors.Wrap(res.Error, "search ingredients")
	}

	out = make([]IngredientView, len(ingredients))
	for i := range ingredients {
		out[i] = ingredientView(&ingredients[i])
	}
	if err := s.cache.Set(ctx, ingredientsNamespace, key, out); err != nil {
		s.logger.Warnw("ingredient cache write failed", "err", err)
	}
	return out, nil
}

func (s *Catalog) GetIngredient(ctx context.Context, id uint64) (*IngredientView, error) {
	var ingredient db.Ingredient
	if res := s.db.WithContext(ctx).First(&ingredient, id); res.Error != nil {
		return nil, notFoundOr(res.Error, "ingredient", id)
	}
	v := ingredientView(&ingredient)
	return &v, nil
}

// ImportIngredients replaces the whole catalog with the rows of a two-column
// (name, measurement_unit) CSV. The first row is a header and is skipped.
func (s *Catalog) ImportIngredients(ctx context.Context, r io.Reader) (int, error) {
	items, err := ParseIngredientsCSV(r)
	if err != nil {
		return 0, err
	}

	n, err := s.loader.ReplaceIngredients(ctx, items)
	if errors.Is(err, db.ErrCatalogReferenced) {
		return 0, conflictErr("ingredient catalog is referenced by recipes and cannot be replaced")
	}
	if err != nil {
		return 0, errors.Wrap(err, "replace ingredients")
	}

	if err := s.cache.Invalidate(ctx, ingredientsNamespace); err != nil {
		s.logger.Warnw("ingredient cache invalidation failed", "err", err)
	}
	s.logger.Infow("ingredient catalog replaced", "rows", n)
	return n, nil
}

func ParseIngredientsCSV(r io.Reader) ([]db.Ingredient, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, validationErr("csv: %s", err.Error())
	}
	if len(records) > 0 {
		records = records[1:]
	}

	items := make([]db.Ingredient, 0, len(records))
	for i, rec := range records {
		name, unit := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if name == "" || unit == "" {
			return nil, validationErr("csv row %d: name and measurement unit are required", i+2)
		}
		if len(name) > 200 || len(unit) > 200 {
			return nil, validationErr("csv row %d: values must be at most 200 characters", i+2)
		}
		items = append(items, db.Ingredient{Name: name, MeasurementUnit: unit})
	}
	return items, nil
}

func (s *Catalog) ListTags(ctx context.Context) ([]TagView, error) {
	tags := make([]db.Tag, 0)
	if res := s.db.WithContext(ctx).Order("id").Find(&tags); res.Error != nil {
		return nil, errors.Wrap(res.Error, "list tags")
	}
	out := make([]TagView, len(tags))
	for i := range tags {
		out[i] = tagView(&tags[i])
	}
	return out, nil
}

func (s *Catalog) GetTag(ctx context.Context, id uint64) (*TagView, error) {
	var tag db.Tag
	if res := s.db.WithContext(ctx).First(&tag, id); res.Error != nil {
		return nil, notFoundOr(res.Error, "tag", id)
	}
	v := tagView(&tag)
	return &v, nil
}

func (s *Catalog) CreateTag(ctx context.Context, in TagInput) (*TagView, error) {
	if err := checkStruct(s.validate, in); err != nil {
		return nil, err
	}
	if !tagSlugRe.MatchString(in.Slug) {
		return nil, validationErr("slug may contain only letters, digits, hyphens and underscores")
	}

	tag := db.Tag{Name: in.Name, Color: in.Color, Slug: in.Slug}
	res := s.db.WithContext(ctx).Create(&tag)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, conflictErr("tag with slug %q already exists", in.Slug)
	}
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "create tag")
	}

	s.logger.Infow("tag created", "tag_id", tag.ID, "slug", tag.Slug)
	v := tagView(&tag)
	return &v, nil
}
