package httpapi

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/ratelimit"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type localsKey string

const accountKey localsKey = "account"

// currentAccount returns the account stored by authenticate.
func currentAccount(c *fiber.Ctx) (*models.Account, error) {
	a, ok := c.Locals(accountKey).(*models.Account)
	if !ok || a == nil {
		return nil, common.NewError(common.ErrorUnauthorized, services.MsgNotAuthorized)
	}
	return a, nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(common.AuthorizationHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

func authenticate(identity Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, err := identity.Authenticate(c.UserContext(), bearerToken(c))
		if err != nil {
			return err
		}
		c.Locals(accountKey, account)
		return c.Next()
	}
}

// requestTimeout bounds the request context handed to services.
func requestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func rateLimit(l *ratelimit.KeyLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP(), time.Now()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		}
		return c.Next()
	}
}

// accessLog renders handler errors through the app's error handler so the
// logged and counted status is the one sent to the client.
func accessLog(log logging.Logger, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		route := c.Route().Path

		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())
		}

		log.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", elapsed,
			"ip", c.IP(),
		)
		return nil
	}
}
