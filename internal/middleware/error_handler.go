package middleware

import (
	"agrimarket-backend/internal/pkg/apperr"
	"agrimarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Maps error kinds to HTTP
// codes and the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	switch apperr.KindOf(err) {
	case apperr.Validation:
		code = fiber.StatusBadRequest
		message = err.Error()
	case apperr.Authentication, apperr.TokenInvalid:
		code = fiber.StatusUnauthorized
		message = err.Error()
	case apperr.NotFound:
		code = fiber.StatusNotFound
		message = err.Error()
	case apperr.Conflict:
		code = fiber.StatusConflict
		message = err.Error()
	default:
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}
	}

	return response.Error(c, message, code, nil)
}
