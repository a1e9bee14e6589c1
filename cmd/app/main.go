package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/cache"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/logger"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/media"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/proto"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/transport"
)

var (
	rootCmd = &cobra.Command{
		Use:          "foodgram",
		Short:        "Recipe sharing backend",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			newApp().Run()
		},
	}
)

func newApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.NewConfig,
			db.NewGormClient,
			media.NewDecoder,
		),
		logger.Module,
		cache.Module,
		service.Module,
		transport.Module,
		proto.Module,
		fx.Invoke(func(*transport.HTTPServer, *proto.FoodgramServerImpl) {}),
	)
}

func main() {
	rootCmd.AddCommand(serveCmd, ingredientsCmd, tagsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
