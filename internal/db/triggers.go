package db

import (
	"gorm.io/gorm"
)

var recipeTriggerStatements = []string{
	`CREATE OR REPLACE FUNCTION recipes_require_ingredients() RETURNS trigger AS $$
DECLARE
	rid bigint;
BEGIN
	IF TG_TABLE_NAME = 'recipes' THEN
		rid := NEW.id;
	ELSE
		rid := OLD.recipe_id;
	END IF;
	IF EXISTS (SELECT 1 FROM recipes WHERE id = rid)
		AND NOT EXISTS (SELECT 1 FROM recipe_ingredients WHERE recipe_id = rid) THEN
		RAISE EXCEPTION 'recipe % has no ingredient lines', rid USING ERRCODE = 'check_violation';
	END IF;
	RETURN NULL;
END
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS recipes_require_ingredients ON recipes`,
	`CREATE CONSTRAINT TRIGGER recipes_require_ingredients
	AFTER INSERT ON recipes
	DEFERRABLE INITIALLY DEFERRED
	FOR EACH ROW EXECUTE PROCEDURE recipes_require_ingredients()`,
	`DROP TRIGGER IF EXISTS recipe_ingredients_keep_one ON recipe_ingredients`,
	`CREATE CONSTRAINT TRIGGER recipe_ingredients_keep_one
	AFTER UPDATE OR DELETE ON recipe_ingredients
	DEFERRABLE INITIALLY DEFERRED
	FOR EACH ROW EXECUTE PROCEDURE recipes_require_ingredients()`,
}

func installRecipeTriggers(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range recipeTriggerStatements {
			if res := tx.Exec(stmt); res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}
