package transport

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/service"
)

type ErrorResp struct {
	Detail string `json:"detail"`
}

// StatusOf maps service error kinds to HTTP statuses. A duplicate add is reported as
// 400, like any other rejected write.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	var he *echo.HTTPError
	var se *service.Error
	switch {
	case errors.As(err, &he):
		status, detail = he.Code, fmt.Sprint(he.Message)
		if he.Internal != nil {
			s.logger.Debugw("request rejected", "status", status, "err", he.Internal)
		}
	case errors.As(err, &se):
		status, detail = StatusOf(se), se.Msg
	default:
		s.logger.Errorw("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResp{Detail: detail})
	}
	if err != nil {
		s.logger.Errorw("write error response", "err", err)
	}
}
