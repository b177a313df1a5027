// Command webhook-receiver is a local sink for lockout notifications.
package main

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/blog_auth/internal/service"
	"github.com/rryowa/blog_auth/internal/util"
)

func main() {
	util.LoadEnv()
	logger := util.NewZapLogger()

	addr := os.Getenv("WEBHOOK_RECEIVER_ADDRESS")
	if addr == "" {
		addr = ":9090"
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/", func(c echo.Context) error {
		var event service.LockoutEvent
		if err := c.Bind(&event); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Error parsing JSON")
		}

		logger.Infow("Received lockout webhook",
			"namespace", event.Namespace,
			"identifier", event.Identifier,
			"failures", event.Failures,
			"lockedUntil", event.LockedUntil,
		)
		return c.String(http.StatusOK, "Webhook received!")
	})

	logger.Infof("Webhook receiver listening on %s", addr)
	if err := e.Start(addr); err != nil {
		logger.Fatalw("Webhook receiver stopped", "error", err)
	}
}
