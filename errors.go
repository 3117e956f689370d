package authgate

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthenticated = "unauthenticated_user"
	TextCodeForbidden       = "forbidden_access"
	TextCodeNotFound        = "not_found"
	TextCodeUsernameTaken   = "username_taken"
	TextCodeTokenExpired    = "token_expired"
	TextCodeTokenMalformed  = "token_malformed"
	TextCodeInvalidPassword = "invalid_password"
	TextCodeInvalidResult   = "invalid_result"
	TextCodeFormatError     = "format_error"
	TextCodeUnknownRoute    = "unknown_route"
	TextCodeConfiguration   = "configuration_error"
)

// ErrUnauthenticated is returned when a request carries no usable proof of
// identity. The guard deliberately collapses missing headers, malformed or
// expired tokens and unknown tokens into this one error so callers cannot
// probe which check failed.
var ErrUnauthenticated = errors.New("unauthenticated user", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when identity is proven but the account lacks
// admin rights. This is the only guard failure distinguishable from 401.
var ErrForbidden = errors.New("user does not have access rights", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrNotFound covers both an unknown username and a wrong password, which
// must be indistinguishable to the caller.
var ErrNotFound = errors.New("not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrUsernameTaken is returned when inserting a user whose username exists.
var ErrUsernameTaken = errors.New("username already exists", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when a token's embedded expiry has elapsed.
var ErrTokenExpired = errors.New("invalid access token: expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenMalformed is returned for unsigned, tampered or garbage tokens.
var ErrTokenMalformed = errors.New("invalid access token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeBadRequest)

// ErrInvalidPassword is returned by change_password when the supplied
// current password does not match the stored hash.
var ErrInvalidPassword = errors.New("invalid password", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(errors.CodeBadRequest)

// ErrUnknownRoute is returned by the catch-all handler.
var ErrUnknownRoute = errors.New("unknown route", errors.CategoryNotFound).
	WithTextCode(TextCodeUnknownRoute).
	WithCode(errors.CodeNotFound)

// ErrNoEmptyString rejects empty input where a value is required.
var ErrNoEmptyString = errors.New("value cannot be an empty string", errors.CategoryValidation).
	WithTextCode("no_empty_string").
	WithCode(errors.CodeBadRequest)

// ErrEmptyDBURL is a fatal boot error: no database to talk to.
var ErrEmptyDBURL = errors.New("empty database url", errors.CategoryOperation).
	WithTextCode(TextCodeConfiguration).
	WithCode(errors.CodeInternal)

// InvalidResultError signals a store invariant violation: an update or
// delete by primary key touched more than one row. It can only happen if
// uniqueness was broken upstream, so it carries the evidence.
func InvalidResultError(op string, rows int64) *errors.Error {
	return errors.New("store returned an invalid result", errors.CategoryOperation).
		WithTextCode(TextCodeInvalidResult).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"operation": op,
			"rows":      rows,
		})
}

// FormatError wraps a request body that could not be decoded.
func FormatError(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryBadInput, "format error").
		WithTextCode(TextCodeFormatError).
		WithCode(errors.CodeBadRequest)
}

// ErrorResponse is the body shape for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// NewErrorHandler builds the fiber error handler that maps the error
// taxonomy onto HTTP statuses and renders the {"error","code"} body.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error: fiberErr.Message,
				Code:  fiberErr.Code,
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "internal error").
				WithCode(errors.CodeInternal)
		}

		status := richErr.Code
		if status == 0 {
			status = statusFromCategory(richErr.Category)
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed: %s %s: %s", c.Method(), c.Path(), err)
		} else {
			logger.Debug("request rejected: %s %s: %s", c.Method(), c.Path(), richErr.Message)
		}

		return c.Status(status).JSON(ErrorResponse{
			Error: richErr.Message,
			Code:  status,
		})
	}
}

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryBadInput, errors.CategoryValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
