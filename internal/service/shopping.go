package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/metrics"
)

type (
	// CartLine is one ingredient line of a recipe currently in a cart.
	CartLine struct {
		IngredientID uint64
		Amount       int
	}

	ShoppingItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int64  `json:"amount"`
		ingredientID    uint64
	}

	ShoppingList struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}
)

func NewShoppingList(gdb *gorm.DB, l *zap.SugaredLogger) *ShoppingList {
	return &ShoppingList{db: gdb, logger: l}
}

// MergeCartLines sums amounts per ingredient id. Lines for different ingredients never
// merge, even when the ingredients share a display name.
func MergeCartLines(lines []CartLine) map[uint64]int64 {
	totals := make(map[uint64]int64, len(lines))
	for _, line := range lines {
		totals[line.IngredientID] += int64(line.Amount)
	}
	return totals
}

// Export aggregates the current ingredient lines of every recipe in the user's cart.
// An empty cart gives an empty list.
func (s *ShoppingList) Export(ctx context.Context, user *db.User) ([]ShoppingItem, error) {
	if user == nil {
		return nil, newError(ErrUnauthorized, "authentication required")
	}

	sql, args, err := squirrel.
		Select("ri.ingredient_id", "ri.amount").
		From("recipe_ingredients ri").
		Join("shopping_cart_entries c ON c.recipe_id = ri.recipe_id").
		Where(squirrel.Eq{"c.user_id": user.ID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}
	lines := make([]CartLine, 0)
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&lines); res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan cart lines")
	}

	totals := MergeCartLines(lines)
	ids := make([]uint64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	ingredients := make([]db.Ingredient, 0, len(ids))
	if len(ids) > 0 {
		if res := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients); res.Error != nil {
			return nil, errors.Wrap(res.Error, "load ingredients")
		}
	}

	items := shoppingItems(totals, ingredients)
	metrics.ShoppingListExports.Inc()
	metrics.ShoppingListItems.Observe(float64(len(items)))
	s.logger.Debugw("shopping list exported", "user_id", user.ID, "items", len(items))
	return items, nil
}

// shoppingItems resolves each total once and orders the result by name, unit and id.
func shoppingItems(totals map[uint64]int64, ingredients []db.Ingredient) []ShoppingItem {
	items := make([]ShoppingItem, 0, len(ingredients))
	for _, ing := range ingredients {
		amount, ok := totals[ing.ID]
		if !ok {
			continue
		}
		items = append(items, ShoppingItem{
			Name:            ing.Name,
			MeasurementUnit: ing.MeasurementUnit,
			Amount:          amount,
			ingredientID:    ing.ID,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.MeasurementUnit != b.MeasurementUnit {
			return a.MeasurementUnit < b.MeasurementUnit
		}
		return a.ingredientID < b.ingredientID
	})
	return items
}

func RenderShoppingText(w io.Writer, items []ShoppingItem) error {
	if _, err := fmt.Fprintln(w, "Shopping list"); err != nil {
		return err
	}
	for i, item := range items {
		if _, err := fmt.Fprintf(w, "%d. %s (%s) - %d\n", i+1, item.Name, item.MeasurementUnit, item.Amount); err != nil {
			return err
		}
	}
	return nil
}

func RenderShoppingCSV(w io.Writer, items []ShoppingItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "measurement_unit", "amount"}); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write([]string{item.Name, item.MeasurementUnit, strconv.FormatInt(item.Amount, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
