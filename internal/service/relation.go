package service

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/metrics"
)

const ownerColumn = "user_id"

// Relation is a toggleable (user, target) pair table with a unique index on the pair.
// T is the target model, R the row model stored in table.
type Relation[T any, R any] struct {
	db         *gorm.DB
	logger     *zap.SugaredLogger
	name       string
	targetName string
	table      string
	targetCol  string
	omit       []string
	newRow     func(ownerID, targetID uint64) *R
	guard      func(ownerID, targetID uint64) error
}

type Relations struct {
	Favorites     *Relation[db.Recipe, db.FavoriteRecipe]
	Cart          *Relation[db.Recipe, db.ShoppingCartEntry]
	Subscriptions *Relation[db.User, db.Subscription]
}

func NewRelations(gdb *gorm.DB, l *zap.SugaredLogger) *Relations {
	return &Relations{
		Favorites: &Relation[db.Recipe, db.FavoriteRecipe]{
			db:         gdb,
			logger:     l,
			name:       "favorite",
			targetName: "recipe",
			table:      "favorite_recipes",
			targetCol:  "recipe_id",
			omit:       []string{"image"},
			newRow: func(ownerID, targetID uint64) *db.FavoriteRecipe {
				return &db.FavoriteRecipe{UserID: ownerID, RecipeID: targetID}
			},
		},
		Cart: &Relation[db.Recipe, db.ShoppingCartEntry]{
			db:         gdb,
			logger:     l,
			name:       "shopping_cart",
			targetName: "recipe",
			table:      "shopping_cart_entries",
			targetCol:  "recipe_id",
			omit:       []string{"image"},
			newRow: func(ownerID, targetID uint64) *db.ShoppingCartEntry {
				return &db.ShoppingCartEntry{UserID: ownerID, RecipeID: targetID}
			},
		},
		Subscriptions: &Relation[db.User, db.Subscription]{
			db:         gdb,
			logger:     l,
			name:       "subscription",
			targetName: "user",
			table:      "subscriptions",
			targetCol:  "author_id",
			newRow: func(ownerID, targetID uint64) *db.Subscription {
				return &db.Subscription{UserID: ownerID, AuthorID: targetID}
			},
			guard: func(ownerID, targetID uint64) error {
				if ownerID == targetID {
					return validationErr("you cannot subscribe to yourself")
				}
				return nil
			},
		},
	}
}

// Add inserts the pair. The insert and its uniqueness check are one statement, so two
// concurrent adds cannot both succeed.
func (r *Relation[T, R]) Add(ctx context.Context, ownerID, targetID uint64) (*T, error) {
	target, err := r.add(ctx, ownerID, targetID)
	r.observe("add", err)
	return target, err
}

func (r *Relation[T, R]) add(ctx context.Context, ownerID, targetID uint64) (*T, error) {
	if r.guard != nil {
		if err := r.guard(ownerID, targetID); err != nil {
			return nil, err
		}
	}

	target := new(T)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if res := tx.Omit(r.omit...).First(target, targetID); res.Error != nil {
			return notFoundOr(res.Error, r.targetName, targetID)
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(r.newRow(ownerID, targetID))
		if res.Error != nil {
			return errors.Wrapf(res.Error, "insert %s", r.name)
		}
		if res.RowsAffected == 0 {
			return conflictErr("%s %d is already in %s", r.targetName, targetID, r.name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debugw("relation added", "relation", r.name, "user_id", ownerID, "target_id", targetID)
	return target, nil
}

func (r *Relation[T, R]) Remove(ctx context.Context, ownerID, targetID uint64) error {
	err := r.remove(ctx, ownerID, targetID)
	r.observe("remove", err)
	return err
}

func (r *Relation[T, R]) remove(ctx context.Context, ownerID, targetID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if res := tx.Omit(r.omit...).First(new(T), targetID); res.Error != nil {
			return notFoundOr(res.Error, r.targetName, targetID)
		}

		res := tx.Where(ownerColumn+" = ? AND "+r.targetCol+" = ?", ownerID, targetID).Delete(new(R))
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete %s", r.name)
		}
		if res.RowsAffected == 0 {
			return notFoundErr("%s %d is not in %s", r.targetName, targetID, r.name)
		}
		return nil
	})
}

func (r *Relation[T, R]) Exists(ctx context.Context, ownerID, targetID uint64) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(new(R)).
		Where(ownerColumn+" = ? AND "+r.targetCol+" = ?", ownerID, targetID).
		Count(&n)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "count %s", r.name)
	}
	return n > 0, nil
}

// Members reports which of targetIDs are paired with ownerID, in a single query.
func (r *Relation[T, R]) Members(ctx context.Context, ownerID uint64, targetIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}

	sql, args, err := squirrel.
		Select(r.targetCol).From(r.table).
		Where(squirrel.Eq{ownerColumn: ownerID, r.targetCol: targetIDs}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	ids := make([]uint64, 0, len(targetIDs))
	if res := r.db.WithContext(ctx).Raw(sql, args...).Scan(&ids); res.Error != nil {
		return nil, errors.Wrapf(res.Error, "scan %s members", r.name)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Targets lists the owner's targets, newest pair first. A non-positive page limit
// returns everything.
func (r *Relation[T, R]) Targets(ctx context.Context, ownerID uint64, page Page) ([]uint64, int64, error) {
	owned := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(new(R)).Where(ownerColumn+" = ?", ownerID)
	}

	var total int64
	if res := owned().Count(&total); res.Error != nil {
		return nil, 0, errors.Wrapf(res.Error, "count %s", r.name)
	}

	q := owned().Order("created_at DESC").Order("id DESC")
	if page.Limit > 0 {
		q = q.Offset(page.offset()).Limit(page.Limit)
	}
	ids := make([]uint64, 0)
	if res := q.Pluck(r.targetCol, &ids); res.Error != nil {
		return nil, 0, errors.Wrapf(res.Error, "list %s", r.name)
	}
	return ids, total, nil
}

// ownedBy is a subquery selecting the owner's target ids, for list filters.
func (r *Relation[T, R]) ownedBy(ownerID uint64) squirrel.SelectBuilder {
	return squirrel.Select(r.targetCol).From(r.table).Where(squirrel.Eq{ownerColumn: ownerID})
}

func (r *Relation[T, R]) observe(action string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		outcome = "conflict"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrValidation):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.RelationToggles.WithLabelValues(r.name, action, outcome).Inc()
}
