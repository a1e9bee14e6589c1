package db

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrCatalogReferenced is returned when the ingredient catalog cannot be replaced
// because recipes still point at it.
var ErrCatalogReferenced = errors.New("ingredient catalog is referenced by recipes")

type (
	// PgxCatalogLoader bulk-loads the catalog with COPY.
	PgxCatalogLoader struct {
		conn *pgx.Conn
	}

	// GormCatalogLoader is the portable fallback used by SQLite.
	GormCatalogLoader struct {
		db *gorm.DB
	}
)

func NewPgxConn(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	return conn, nil
}

func NewPgxCatalogLoader(conn *pgx.Conn) *PgxCatalogLoader {
	return &PgxCatalogLoader{conn: conn}
}

func (l *PgxCatalogLoader) ReplaceIngredients(ctx context.Context, items []Ingredient) (int, error) {
	tx, err := l.conn.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var referenced bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM recipe_ingredients)").Scan(&referenced); err != nil {
		return 0, errors.Wrap(err, "check references")
	}
	if referenced {
		return 0, ErrCatalogReferenced
	}

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE recipe_ingredients, ingredients RESTART IDENTITY"); err != nil {
		return 0, errors.Wrap(err, "truncate")
	}

	rows := make([][]interface{}, len(items))
	for i := range items {
		rows[i] = []interface{}{items[i].Name, items[i].MeasurementUnit}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"ingredients"}, []string{"name", "measurement_unit"}, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, errors.Wrap(err, "copy")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return int(n), nil
}

func NewGormCatalogLoader(db *gorm.DB) *GormCatalogLoader {
	return &GormCatalogLoader{db: db}
}

func (l *GormCatalogLoader) ReplaceIngredients(ctx context.Context, items []Ingredient) (int, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lines int64
		if res := tx.Model(&RecipeIngredient{}).Count(&lines); res.Error != nil {
			return errors.Wrap(res.Error, "check references")
		}
		if lines > 0 {
			return ErrCatalogReferenced
		}

		if res := tx.Exec("DELETE FROM ingredients"); res.Error != nil {
			return errors.Wrap(res.Error, "delete")
		}
		if err := resetSequence(tx, "ingredients"); err != nil {
			return errors.Wrap(err, "reset sequence")
		}

		if len(items) == 0 {
			return nil
		}
		rows := make([]Ingredient, len(items))
		for i := range items {
			rows[i] = Ingredient{Name: items[i].Name, MeasurementUnit: items[i].MeasurementUnit}
		}
		if res := tx.CreateInBatches(rows, 500); res.Error != nil {
			return errors.Wrap(res.Error, "insert")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// resetSequence restarts identity numbering of an emptied table. A plain SQLite rowid
// table restarts on its own; only AUTOINCREMENT tables keep state in sqlite_sequence.
func resetSequence(tx *gorm.DB, table string) error {
	switch tx.Dialector.Name() {
	case "postgres":
		return tx.Exec("SELECT setval(pg_get_serial_sequence(?, 'id'), 1, false)", table).Error
	case "sqlite":
		var n int64
		res := tx.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").Scan(&n)
		if res.Error != nil || n == 0 {
			return res.Error
		}
		return tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error
	}
	return nil
}
