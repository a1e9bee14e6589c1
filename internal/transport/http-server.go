package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/metrics"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
)

const userKey = "user"

var Module = fx.Provide(NewHTTPServer)

type (
	Deps struct {
		fx.In

		Config   *config.Config
		Logger   *zap.SugaredLogger
		Auth     *service.Auth
		Recipes  *service.Recipes
		Users    *service.Users
		Toggles  *service.Toggles
		Shopping *service.ShoppingList
		Catalog  *service.Catalog
	}

	HTTPServer struct {
		e        *echo.Echo
		logger   *zap.SugaredLogger
		auth     *service.Auth
		recipes  *service.Recipes
		users    *service.Users
		toggles  *service.Toggles
		shopping *service.ShoppingList
		catalog  *service.Catalog
	}
)

func NewHTTPServer(lc fx.Lifecycle, d Deps) *HTTPServer {
	instance := newHTTPServer(d)
	e := instance.e

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := d.Config.Host + ":" + d.Config.Port
				d.Logger.Infow("starting HTTP server", "addr", listen)
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					d.Logger.Fatalw("shutting down the server", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return instance
}

func newHTTPServer(d Deps) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	instance := &HTTPServer{
		e:        e,
		logger:   d.Logger,
		auth:     d.Auth,
		recipes:  d.Recipes,
		users:    d.Users,
		toggles:  d.Toggles,
		shopping: d.Shopping,
		catalog:  d.Catalog,
	}

	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = instance.handleError

	e.Use(middleware.Recover())
	e.Use(requestLogger(d.Logger))
	e.Use(metrics.Middleware)
	e.Use(middleware.CORS())

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api", instance.AuthMiddleware)

	authG := api.Group("/auth",
		middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(d.Config.RateLimit),
				Burst: int(d.Config.RateLimit),
			}),
		}),
		authBodyLogger(d.Logger),
	)
	authG.POST("/register", instance.Register)
	authG.POST("/token/login", instance.Login)
	authG.POST("/token/logout", instance.Logout, RequireUser)

	usersG := api.Group("/users")
	usersG.GET("", instance.UserList)
	usersG.GET("/me", instance.UserMe, RequireUser)
	usersG.GET("/subscriptions", instance.Subscriptions, RequireUser)
	usersG.GET("/:id", instance.UserGet)
	usersG.POST("/:id/subscribe", instance.Subscribe, RequireUser)
	usersG.DELETE("/:id/subscribe", instance.Unsubscribe, RequireUser)

	api.GET("/tags", instance.TagList)
	api.GET("/tags/:id", instance.TagGet)
	api.GET("/ingredients", instance.IngredientSearch)
	api.GET("/ingredients/:id", instance.IngredientGet)

	recipesG := api.Group("/recipes")
	writeLimit := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if d.Config.BodyLimit != "" {
		writeLimit = middleware.BodyLimit(d.Config.BodyLimit)
	}
	recipesG.GET("", instance.RecipeList)
	recipesG.POST("", instance.RecipeCreate, writeLimit, RequireUser)
	recipesG.GET("/download_shopping_cart", instance.ShoppingCartDownload, RequireUser)
	recipesG.GET("/:id", instance.RecipeGet)
	recipesG.PATCH("/:id", instance.RecipeUpdate, writeLimit, RequireUser)
	recipesG.DELETE("/:id", instance.RecipeDelete, RequireUser)
	recipesG.GET("/:id/image", instance.RecipeImage)
	recipesG.POST("/:id/favorite", instance.FavoriteAdd, RequireUser)
	recipesG.DELETE("/:id/favorite", instance.FavoriteRemove, RequireUser)
	recipesG.POST("/:id/shopping_cart", instance.ShoppingCartAdd, RequireUser)
	recipesG.DELETE("/:id/shopping_cart", instance.ShoppingCartRemove, RequireUser)

	return instance
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// AuthMiddleware resolves the caller from "Authorization: Token <t>" or "X-Token".
// Requests without a token continue anonymously; a token that matches nobody is a 401.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromRequest(c.Request())
		if token == "" {
			return next(c)
		}
		user, err := s.auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			return err
		}
		c.Set(userKey, user)
		return next(c)
	}
}

func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if GetUserFromContext(c) == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
		}
		return next(c)
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Token") {
			return strings.TrimSpace(token)
		}
	}
	return r.Header.Get("X-Token")
}

////////

// GetUserFromContext returns nil for anonymous requests.
func GetUserFromContext(c echo.Context) *db.User {
	user, _ := c.Get(userKey).(*db.User)
	return user
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v := c.Param(name)
	if v == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	vv, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found").SetInternal(err)
	}
	return vv, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid query param '"+name+"'")
	}
	return n, nil
}

func queryBool(c echo.Context, name string) bool {
	switch strings.ToLower(c.QueryParam(name)) {
	case "1", "true":
		return true
	}
	return false
}

func pageFromQuery(c echo.Context) (service.Page, error) {
	number, err := queryInt(c, "page")
	if err != nil {
		return service.Page{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return service.Page{}, err
	}
	return service.Page{Number: number, Limit: limit}, nil
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
