package transport

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
)

type TokenResp struct {
	AuthToken string `json:"auth_token"`
}

func (s *HTTPServer) Register(c echo.Context) error {
	req := service.RegisterInput{}
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := s.auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := service.LoginInput{}
	if err := bind(c, &req); err != nil {
		return err
	}
	token, err := s.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResp{AuthToken: token})
}

func (s *HTTPServer) Logout(c echo.Context) error {
	if err := s.auth.Logout(c.Request().Context(), GetUserFromContext(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) UserList(c echo.Context) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	resp, err := s.users.List(c.Request().Context(), GetUserFromContext(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) UserMe(c echo.Context) error {
	resp, err := s.users.Me(GetUserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) UserGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.users.Get(c.Request().Context(), GetUserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) Subscriptions(c echo.Context) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "recipes_limit")
	if err != nil {
		return err
	}
	resp, err := s.users.Subscriptions(c.Request().Context(), GetUserFromContext(c), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) Subscribe(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "recipes_limit")
	if err != nil {
		return err
	}
	resp, err := s.toggles.Subscribe(c.Request().Context(), GetUserFromContext(c), id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) Unsubscribe(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.toggles.Unsubscribe(c.Request().Context(), GetUserFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) TagList(c echo.Context) error {
	resp, err := s.catalog.ListTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.catalog.GetTag(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IngredientSearch(c echo.Context) error {
	resp, err := s.catalog.SearchIngredients(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IngredientGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.catalog.GetIngredient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeList(c echo.Context) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	author, err := queryInt(c, "author")
	if err != nil {
		return err
	}
	filter := service.RecipeFilter{
		Page:      page,
		TagSlugs:  c.QueryParams()["tags"],
		AuthorID:  uint64(author),
		Favorited: queryBool(c, "is_favorited"),
		InCart:    queryBool(c, "is_in_shopping_cart"),
	}
	resp, err := s.recipes.List(c.Request().Context(), GetUserFromContext(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.recipes.Get(c.Request().Context(), GetUserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeCreate(c echo.Context) error {
	req := service.RecipeInput{}
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := s.recipes.Create(c.Request().Context(), GetUserFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) RecipeUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	req := service.RecipeInput{}
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := s.recipes.Update(c.Request().Context(), GetUserFromContext(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.recipes.Delete(c.Request().Context(), GetUserFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) RecipeImage(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	data, contentType, err := s.recipes.Image(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, contentType, data)
}

func (s *HTTPServer) FavoriteAdd(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.toggles.AddFavorite(c.Request().Context(), GetUserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) FavoriteRemove(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.toggles.RemoveFavorite(c.Request().Context(), GetUserFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) ShoppingCartAdd(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.toggles.AddToCart(c.Request().Context(), GetUserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) ShoppingCartRemove(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.toggles.RemoveFromCart(c.Request().Context(), GetUserFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) ShoppingCartDownload(c echo.Context) error {
	render, contentType, filename := service.RenderShoppingText, "text/plain; charset=utf-8", "shopping_list.txt"
	switch c.QueryParam("format") {
	case "", "txt":
	case "csv":
		render, contentType, filename = service.RenderShoppingCSV, "text/csv; charset=utf-8", "shopping_list.csv"
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "format must be txt or csv")
	}

	items, err := s.shopping.Export(c.Request().Context(), GetUserFromContext(c))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render(&buf, items); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}
