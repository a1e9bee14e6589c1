package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/cache"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/logger"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
)

var (
	tagName  string
	tagColor string
	tagSlug  string

	ingredientsCmd = &cobra.Command{
		Use:   "ingredients",
		Short: "Manage the ingredient catalog",
	}

	ingredientsImportCmd = &cobra.Command{
		Use:   "import [csv file]",
		Short: "Replace the ingredient catalog with a name,measurement_unit CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngredientsImport,
	}

	tagsCmd = &cobra.Command{
		Use:   "tags",
		Short: "Manage recipe tags",
	}

	tagsCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a tag",
		Args:  cobra.NoArgs,
		RunE:  runTagsCreate,
	}
)

func init() {
	ingredientsCmd.AddCommand(ingredientsImportCmd)

	tagsCreateCmd.Flags().StringVar(&tagName, "name", "", "tag name")
	tagsCreateCmd.Flags().StringVar(&tagColor, "color", "", "hex color, e.g. #E26C2D")
	tagsCreateCmd.Flags().StringVar(&tagSlug, "slug", "", "unique slug")
	for _, name := range []string{"name", "color", "slug"} {
		_ = tagsCreateCmd.MarkFlagRequired(name)
	}
	tagsCmd.AddCommand(tagsCreateCmd)
}

type adminEnv struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func openAdminEnv() (*adminEnv, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	l, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	gdb, err := db.NewGormClient(cfg, l)
	if err != nil {
		return nil, err
	}
	return &adminEnv{cfg: cfg, logger: l, db: gdb}, nil
}

func runIngredientsImport(cmd *cobra.Command, args []string) error {
	env, err := openAdminEnv()
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck

	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "open csv")
	}
	defer f.Close()

	ctx := context.Background()
	conn, err := db.NewPgxConn(ctx, env.cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer conn.Close(ctx) //nolint:errcheck

	store := cache.Open(env.cfg, env.logger)
	defer store.Close() //nolint:errcheck

	catalog := service.NewCatalog(env.db, env.logger, service.NewValidator(), store).
		WithLoader(db.NewPgxCatalogLoader(conn))
	n, err := catalog.ImportIngredients(ctx, f)
	if err != nil {
		return err
	}
	env.logger.Infow("ingredient catalog replaced", "count", n, "file", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d ingredients\n", n)
	return nil
}

func runTagsCreate(cmd *cobra.Command, _ []string) error {
	env, err := openAdminEnv()
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck

	catalog := service.NewCatalog(env.db, env.logger, service.NewValidator(), cache.Nop{})
	tag, err := catalog.CreateTag(context.Background(), service.TagInput{
		Name:  tagName,
		Color: tagColor,
		Slug:  tagSlug,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created tag %d (%s)\n", tag.ID, tag.Slug)
	return nil
}
