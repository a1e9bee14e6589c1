package proto

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/media"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
)

func startServer(t *testing.T) (*FoodgramClient, *gorm.DB, *service.Toggles, *service.Recipes) {
	t.Helper()

	gdb := dbtest.New(t)
	cfg := &config.Config{PageSize: 6, ImageMaxSide: 64, PasswordCost: bcrypt.MinCost}
	l := zap.NewNop().Sugar()
	v := service.NewValidator()
	rel := service.NewRelations(gdb, l)
	enricher := service.NewEnricher(rel)
	recipes := service.NewRecipes(cfg, gdb, l, v, media.NewDecoder(cfg), rel, enricher)
	toggles := service.NewToggles(rel, service.NewUsers(cfg, gdb, l, rel, enricher))

	impl := &FoodgramServerImpl{
		logger:   l,
		auth:     service.NewAuth(cfg, gdb, l, v),
		recipes:  recipes,
		shopping: service.NewShoppingList(gdb, l),
	}
	grpcServer := impl.newServer()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithInsecure(),
		grpc.WithBlock(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewFoodgramClient(conn), gdb, toggles, recipes
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), tokenMetadataKey, token)
}

func TestGRPC(t *testing.T) {
	client, gdb, toggles, recipes := startServer(t)
	author := dbtest.User(t, gdb, "author")
	buyer := dbtest.User(t, gdb, "buyer")
	flour := dbtest.Ingredient(t, gdb, "flour", "g")
	tag := dbtest.Tag(t, gdb, "bakery")

	recipe, err := recipes.Create(context.Background(), author, service.RecipeInput{
		Name: "bread", Text: "bake", CookingTime: 60,
		Ingredients: []service.IngredientAmount{{ID: flour.ID, Amount: 500}},
		Tags:        []uint64{tag.ID},
	})
	require.NoError(t, err)
	_, err = toggles.AddToCart(context.Background(), buyer, recipe.ID)
	require.NoError(t, err)

	t.Run("get recipe", func(t *testing.T) {
		resp, err := client.GetRecipe(withToken(buyer.Token), wrapperspb.UInt64(recipe.ID))
		require.NoError(t, err)

		raw, err := protojson.Marshal(resp)
		require.NoError(t, err)
		got := service.RecipeView{}
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, recipe.ID, got.ID)
		assert.Equal(t, "bread", got.Name)
		assert.True(t, got.IsInShoppingCart)
		assert.Nil(t, got.Image)

		_, err = client.GetRecipe(context.Background(), wrapperspb.UInt64(999))
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("download shopping cart", func(t *testing.T) {
		resp, err := client.DownloadShoppingCart(withToken(buyer.Token), &emptypb.Empty{})
		require.NoError(t, err)
		require.Len(t, resp.GetValues(), 1)
		item := resp.GetValues()[0].GetStructValue().AsMap()
		assert.Equal(t, "flour", item["name"])
		assert.Equal(t, "g", item["measurement_unit"])
		assert.Equal(t, float64(500), item["amount"])

		resp, err = client.DownloadShoppingCart(withToken(author.Token), &emptypb.Empty{})
		require.NoError(t, err)
		assert.Empty(t, resp.GetValues())
	})

	t.Run("auth", func(t *testing.T) {
		_, err := client.DownloadShoppingCart(context.Background(), &emptypb.Empty{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))

		_, err = client.DownloadShoppingCart(withToken("bogus"), &emptypb.Empty{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestToStatus(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{service.ErrValidation, codes.Internal},
		{&service.Error{Kind: service.ErrValidation, Msg: "bad"}, codes.InvalidArgument},
		{&service.Error{Kind: service.ErrNotFound, Msg: "missing"}, codes.NotFound},
		{&service.Error{Kind: service.ErrConflict, Msg: "dup"}, codes.AlreadyExists},
		{&service.Error{Kind: service.ErrForbidden, Msg: "nope"}, codes.PermissionDenied},
		{db.ErrCatalogReferenced, codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	} {
		got := toStatus(tc.err)
		assert.Equal(t, tc.want, status.Code(got), "%v", tc.err)
	}

	st, _ := status.FromError(toStatus(&service.Error{Kind: service.ErrNotFound, Msg: "recipe 7 not found"}))
	assert.Equal(t, "recipe 7 not found", st.Message())
}
