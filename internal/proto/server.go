package proto

import (
	"context"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
)

const tokenMetadataKey = "x-token"

var Module = fx.Provide(NewGRPCServer)

type (
	userCtxKey struct{}

	FoodgramServerImpl struct {
		logger   *zap.SugaredLogger
		auth     *service.Auth
		recipes  *service.Recipes
		shopping *service.ShoppingList
	}
)

func NewGRPCServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.SugaredLogger,
	auth *service.Auth,
	recipes *service.Recipes,
	shopping *service.ShoppingList,
) *FoodgramServerImpl {
	instance := &FoodgramServerImpl{
		logger:   logger,
		auth:     auth,
		recipes:  recipes,
		shopping: shopping,
	}
	grpcServer := instance.newServer()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.Host+":"+cfg.GRPCPort)
			if err != nil {
				return errors.Wrap(err, "failed to listen")
			}
			logger.Infow("starting GRPC server", "addr", lis.Addr().String())
			go func() {
				if err := grpcServer.Serve(lis); err != nil {
					logger.Errorw("failed to serve", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping GRPC server.")
			grpcServer.GracefulStop()
			return nil
		},
	})

	return instance
}

func (s *FoodgramServerImpl) newServer() *grpc.Server {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(s.logInterceptor, s.authInterceptor))
	RegisterFoodgramServer(grpcServer, s)
	return grpcServer
}

func (s *FoodgramServerImpl) DownloadShoppingCart(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	items, err := s.shopping.Export(ctx, userFromContext(ctx))
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, len(items))
	for i, item := range items {
		values[i] = map[string]interface{}{
			"name":             item.Name,
			"measurement_unit": item.MeasurementUnit,
			"amount":           float64(item.Amount),
		}
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, errors.Wrap(err, "build list")
	}
	return list, nil
}

func (s *FoodgramServerImpl) GetRecipe(ctx context.Context, in *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	recipe, err := s.recipes.Get(ctx, userFromContext(ctx), in.GetValue())
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(recipe)
	if err != nil {
		return nil, errors.Wrap(err, "marshal recipe")
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "unmarshal recipe")
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "build struct")
	}
	return out, nil
}

// authInterceptor resolves the caller from the x-token metadata. Calls without a token
// run anonymously.
func (s *FoodgramServerImpl) authInterceptor(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if tokens := md.Get(tokenMetadataKey); len(tokens) > 0 && tokens[0] != "" {
		user, err := s.auth.Authenticate(ctx, tokens[0])
		if err != nil {
			return nil, err
		}
		ctx = context.WithValue(ctx, userCtxKey{}, user)
	}
	return handler(ctx, req)
}

// logInterceptor logs each call and turns service errors into status errors.
func (s *FoodgramServerImpl) logInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	err = toStatus(err)

	code := status.Code(err)
	fields := []interface{}{"method", info.FullMethod, "code", code.String(), "latency", time.Since(start)}
	if code == codes.Internal {
		s.logger.Errorw("grpc call failed", append(fields, "err", err)...)
	} else {
		s.logger.Infow("grpc call", fields...)
	}
	return resp, err
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var se *service.Error
	if !errors.As(err, &se) {
		return status.Error(codes.Internal, "internal error")
	}
	switch {
	case errors.Is(err, service.ErrValidation):
		return status.Error(codes.InvalidArgument, se.Msg)
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, se.Msg)
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.AlreadyExists, se.Msg)
	case errors.Is(err, service.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, se.Msg)
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, se.Msg)
	}
	return status.Error(codes.Internal, se.Msg)
}

func userFromContext(ctx context.Context) *db.User {
	user, _ := ctx.Value(userCtxKey{}).(*db.User)
	return user
}
