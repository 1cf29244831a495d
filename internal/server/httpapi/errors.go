package httpapi

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps an error returned by a handler to a status code and the
// message shown to the client.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, common.ErrorBadRequest):
		return fiber.StatusBadRequest, common.Message(err, "Bad request")
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusUnauthorized, common.Message(err, "Not authorized")
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound, common.Message(err, "Not found")
	case errors.Is(err, common.ErrorConflict):
		return fiber.StatusConflict, common.Message(err, "Conflict")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "Request timed out"
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

func errorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "request failed",
				"method", c.Method(), "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(messageResponse{Message: msg})
	}
}
