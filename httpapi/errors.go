package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-tracker-auth"
)

// ErrorBody is the JSON envelope for every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var categoryStatus = map[goerrors.Category]int{
	goerrors.CategoryBadInput:   fiber.StatusBadRequest,
	goerrors.CategoryValidation: fiber.StatusBadRequest,
	goerrors.CategoryNotFound:   fiber.StatusNotFound,
	goerrors.CategoryConflict:   fiber.StatusConflict,
	goerrors.CategoryAuth:       fiber.StatusUnauthorized,
	goerrors.CategoryAuthz:      fiber.StatusForbidden,
}

// ErrorHandler is the fiber.Config ErrorHandler for requests that never
// reach a route, such as unknown paths.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, detail := describe(err)
	return c.Status(status).JSON(ErrorBody{Error: detail})
}

// handle writes the error returned by fn as an ErrorBody. Rich errors keep
// their text code and HTTP code, anything else is a 500 without details.
func handle(fn router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		if err := fn(ctx); err != nil {
			status, detail := describe(err)
			return ctx.JSON(status, ErrorBody{Error: detail})
		}
		return nil
	}
}

// unauthorized answers for any failure while resolving the bearer principal.
// Only access token failures keep their own text code.
func unauthorized(ctx router.Context, err error) error {
	detail := ErrorDetail{
		Code:    auth.TextCodeTokenMalformed,
		Message: "missing or invalid bearer token",
	}
	if auth.IsTokenInvalid(err) {
		_, detail = describe(err)
	}
	return ctx.JSON(fiber.StatusUnauthorized, ErrorBody{Error: detail})
}

func describe(err error) (int, ErrorDetail) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, ErrorDetail{Code: "HTTP_ERROR", Message: fe.Message}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil && richErr.TextCode != "" {
		status := richErr.Code
		if status < 400 || status > 599 {
			status = fiber.StatusInternalServerError
			if s, ok := categoryStatus[richErr.Category]; ok {
				status = s
			}
		}
		return status, ErrorDetail{Code: richErr.TextCode, Message: richErr.Message}
	}

	return fiber.StatusInternalServerError, ErrorDetail{
		Code:    "INTERNAL",
		Message: "internal server error",
	}
}
