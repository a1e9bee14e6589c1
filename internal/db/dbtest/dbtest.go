// Package dbtest opens migrated in-memory SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// QueryCounter counts statements that reach the database.
type QueryCounter struct {
	n int64
}

func CountQueries(t testing.TB, gdb *gorm.DB) *QueryCounter {
	t.Helper()

	c := &QueryCounter{}
	inc := func(*gorm.DB) { atomic.AddInt64(&c.n, 1) }
	name := "dbtest:count:" + uuid.New().String()
	require.NoError(t, gdb.Callback().Query().Before("gorm:query").Register(name, inc))
	require.NoError(t, gdb.Callback().Row().Before("gorm:row").Register(name, inc))
	return c
}

func (c *QueryCounter) Count() int64 { return atomic.LoadInt64(&c.n) }

func (c *QueryCounter) Reset() { atomic.StoreInt64(&c.n, 0) }

// Seed helpers keep fixtures short in service and transport tests.

func User(t testing.TB, gdb *gorm.DB, username string) *db.User {
	t.Helper()
	u := db.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "First",
		LastName:  "Last",
		Password:  "-",
		Token:     "token-" + username,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

func Ingredient(t testing.TB, gdb *gorm.DB, name, unit string) *db.Ingredient {
	t.Helper()
	i := db.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, gdb.Create(&i).Error)
	return &i
}

func Tag(t testing.TB, gdb *gorm.DB, slug string) *db.Tag {
	t.Helper()
	tag := db.Tag{Name: slug, Color: "#E26C2D", Slug: slug}
	require.NoError(t, gdb.Create(&tag).Error)
	return &tag
}
