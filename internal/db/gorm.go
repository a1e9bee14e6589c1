package db

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Email     string `gorm:"size:254;unique;not null"`
		Username  string `gorm:"size:150;unique;not null"`
		FirstName string `gorm:"size:150;not null"`
		LastName  string `gorm:"size:150;not null"`
		Password  string `gorm:"not null"`
		Token     string `gorm:"index"`
	}

	Ingredient struct {
		ID              uint64 `gorm:"primarykey"`
		Name            string `gorm:"size:200;not null;index"`
		MeasurementUnit string `gorm:"size:200;not null"`
	}

	Tag struct {
		ID    uint64 `gorm:"primarykey"`
		Name  string `gorm:"size:200;not null"`
		Color string `gorm:"size:7;not null"`
		Slug  string `gorm:"size:200;not null;uniqueIndex"`
	}

	Recipe struct {
		GormForkedModel
		AuthorID         uint64 `gorm:"not null;index"`
		Author           User   `gorm:"constraint:OnDelete:CASCADE"`
		Name             string `gorm:"size:200;not null"`
		Text             string `gorm:"not null"`
		CookingTime      int    `gorm:"not null;check:cooking_time >= 1"`
		Image            []byte
		ImageContentType string
		PubDate          time.Time          `gorm:"not null;index"`
		Lines            []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE"`
		Tags             []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	}

	RecipeIngredient struct {
		ID           uint64     `gorm:"primarykey"`
		RecipeID     uint64     `gorm:"not null;uniqueIndex:uidx_recipe_ingredient"`
		IngredientID uint64     `gorm:"not null;uniqueIndex:uidx_recipe_ingredient"`
		Ingredient   Ingredient `gorm:"constraint:OnDelete:RESTRICT"`
		Amount       int        `gorm:"not null;check:amount >= 1"`
		Position     int        `gorm:"not null"`
	}

	RecipeTag struct {
		RecipeID uint64 `gorm:"primaryKey"`
		TagID    uint64 `gorm:"primaryKey"`
	}

	FavoriteRecipe struct {
		ID        uint64 `gorm:"primarykey"`
		UserID    uint64 `gorm:"not null;uniqueIndex:uidx_favorite_user_recipe"`
		User      User   `gorm:"constraint:OnDelete:CASCADE"`
		RecipeID  uint64 `gorm:"not null;uniqueIndex:uidx_favorite_user_recipe"`
		Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
		CreatedAt time.Time
	}

	ShoppingCartEntry struct {
		ID        uint64 `gorm:"primarykey"`
		UserID    uint64 `gorm:"not null;uniqueIndex:uidx_cart_user_recipe"`
		User      User   `gorm:"constraint:OnDelete:CASCADE"`
		RecipeID  uint64 `gorm:"not null;uniqueIndex:uidx_cart_user_recipe"`
		Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
		CreatedAt time.Time
	}

	Subscription struct {
		ID        uint64 `gorm:"primarykey"`
		UserID    uint64 `gorm:"not null;uniqueIndex:uidx_subscription_user_author;check:user_id <> author_id"`
		User      User   `gorm:"constraint:OnDelete:CASCADE"`
		AuthorID  uint64 `gorm:"not null;uniqueIndex:uidx_subscription_user_author"`
		Author    User   `gorm:"constraint:OnDelete:CASCADE"`
		CreatedAt time.Time
	}
)

func NewGormClient(cfg *config.Config, l *zap.SugaredLogger) (*gorm.DB, error) {
	newLogger := logger.New(zap.NewStdLog(l.Desugar()), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema in dependency order and, on PostgreSQL, installs the
// deferred trigger that keeps every committed recipe non-empty.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Recipe{}, "Tags", &RecipeTag{}); err != nil {
		return errors.Wrap(err, "setup recipe tags")
	}

	models := []struct {
		name  string
		model interface{}
	}{
		{"user", &User{}},
		{"ingredient", &Ingredient{}},
		{"tag", &Tag{}},
		{"recipe", &Recipe{}},
		{"recipe ingredient", &RecipeIngredient{}},
		{"favorite", &FavoriteRecipe{}},
		{"shopping cart", &ShoppingCartEntry{}},
		{"subscription", &Subscription{}},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m.model); err != nil {
			return errors.Wrapf(err, "migrate %s", m.name)
		}
	}

	if db.Dialector.Name() == "postgres" {
		if err := installRecipeTriggers(db); err != nil {
			return errors.Wrap(err, "install recipe triggers")
		}
	}
	return nil
}
