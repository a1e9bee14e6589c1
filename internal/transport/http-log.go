package transport

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const censored = "$censored"

var censoredFields = []string{"password", "current_password", "new_password"}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body: "+err.Error()).SetInternal(err)
	}
	return nil
}

func requestLogger(l *zap.SugaredLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				fields = append(fields, "err", v.Error)
			}
			if v.Status >= 500 {
				l.Errorw("request", fields...)
			} else {
				l.Infow("request", fields...)
			}
			return nil
		},
	})
}

// authBodyLogger dumps /auth request bodies at debug level with secrets censored.
func authBodyLogger(l *zap.SugaredLogger) echo.MiddlewareFunc {
	return middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return !l.Desugar().Core().Enabled(zap.DebugLevel) || !strings.HasPrefix(c.Path(), "/api/auth")
		},
		Handler: func(c echo.Context, reqBody, _ []byte) {
			l.Debugw("auth request body", "path", c.Path(), "body", string(censorBody(reqBody)))
		},
	})
}

// censorBody replaces secret fields of a JSON object. Bodies that are not JSON objects
// are not logged at all.
func censorBody(b []byte) []byte {
	body := map[string]interface{}{}
	if err := json.Unmarshal(b, &body); err != nil {
		return []byte(censored)
	}
	for _, field := range censoredFields {
		if _, ok := body[field]; ok {
			body[field] = censored
		}
	}
	out, err := json.Marshal(body)
	if err != nil {
		return []byte(censored)
	}
	return out
}
