package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/controller"
	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/service"
)

// Step is one link of an authorization chain: nil continues, an error rejects.
type Step func(c echo.Context) error

// Chain runs the steps in order before the handler and stops at the first rejection.
func Chain(steps ...Step) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, step := range steps {
				if err := step(c); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}

// Authenticate attaches the caller's principal. A request without a bearer
// token continues as anonymous; a bad token is rejected.
func Authenticate(auth *service.AuthService) Step {
	return func(c echo.Context) error {
		var p models.Principal
		if raw := controller.BearerToken(c.Request()); raw != "" {
			var err error
			if p, err = auth.Authenticate(c.Request().Context(), raw); err != nil {
				return err
			}
		}
		setPrincipal(c, p)
		return nil
	}
}

// RequireAuthenticated rejects anonymous callers.
func RequireAuthenticated(c echo.Context) error {
	if !principal(c).IsAuthenticated {
		return service.ErrMissingToken
	}
	return nil
}

// RequireAdmin checks the admin flag of the authenticated user.
func RequireAdmin(auth *service.AuthService) Step {
	return func(c echo.Context) error {
		return auth.RequireAdmin(c.Request().Context(), principal(c))
	}
}

func setPrincipal(c echo.Context, p models.Principal) {
	c.Set(models.MwPrincipalKey, p)
	c.Set(models.MwUserIDKey, p.UserID)
	c.Set(models.MwUsernameKey, p.Username)
	c.Set(models.MwIsAuthenticatedKey, p.IsAuthenticated)
	c.SetRequest(c.Request().WithContext(service.WithPrincipal(c.Request().Context(), p)))
}

func principal(c echo.Context) models.Principal {
	p, _ := c.Get(models.MwPrincipalKey).(models.Principal)
	return p
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogRequestID: true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"remoteIP", v.RemoteIP,
				"latency", v.Latency,
				"requestID", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
