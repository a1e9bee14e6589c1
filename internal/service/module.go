package service

import "go.uber.org/fx"

var Module = fx.Provide(
	NewValidator,
	NewRelations,
	NewEnricher,
	NewRecipes,
	NewUsers,
	NewToggles,
	NewShoppingList,
	NewCatalog,
	NewAuth,
)
