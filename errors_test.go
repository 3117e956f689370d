package authgate_test

import (
	"testing"

	"github.com/authgate/authgate"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	t.Run("ErrUnauthenticated", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, authgate.ErrUnauthenticated.Category)
		assert.Equal(t, fiber.StatusUnauthorized, authgate.ErrUnauthenticated.Code)
	})

	t.Run("ErrForbidden", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuthz, authgate.ErrForbidden.Category)
		assert.Equal(t, fiber.StatusForbidden, authgate.ErrForbidden.Code)
	})

	t.Run("ErrNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, authgate.ErrNotFound.Category)
		assert.Equal(t, fiber.StatusNotFound, authgate.ErrNotFound.Code)
	})

	t.Run("ErrUsernameTaken", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, authgate.ErrUsernameTaken.Category)
		assert.Equal(t, fiber.StatusConflict, authgate.ErrUsernameTaken.Code)
	})

	t.Run("ErrInvalidPassword", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryValidation, authgate.ErrInvalidPassword.Category)
		assert.Equal(t, fiber.StatusBadRequest, authgate.ErrInvalidPassword.Code)
	})

	t.Run("crypto errors map to bad request", func(t *testing.T) {
		assert.Equal(t, fiber.StatusBadRequest, authgate.ErrTokenExpired.Code)
		assert.Equal(t, fiber.StatusBadRequest, authgate.ErrTokenMalformed.Code)
	})
}

func TestInvalidResultError(t *testing.T) {
	err := authgate.InvalidResultError("update", 3)

	assert.Equal(t, fiber.StatusBadRequest, err.Code)
	assert.Equal(t, authgate.TextCodeInvalidResult, err.TextCode)
	assert.Equal(t, int64(3), err.Metadata["rows"])
	assert.Equal(t, "update", err.Metadata["operation"])
}

func TestErrorHandlerBodyShape(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler:          authgate.NewErrorHandler(nil),
		DisableStartupMessage: true,
	})

	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return authgate.ErrForbidden
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	t.Run("taxonomy error", func(t *testing.T) {
		res := doGet(t, app, "/forbidden", "")
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)

		body := decodeErrorBody(t, res)
		assert.Equal(t, fiber.StatusForbidden, body.Code)
		assert.Equal(t, "user does not have access rights", body.Error)
	})

	t.Run("unclassified error becomes a 500", func(t *testing.T) {
		res := doGet(t, app, "/plain", "")
		assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)

		body := decodeErrorBody(t, res)
		assert.Equal(t, fiber.StatusInternalServerError, body.Code)
		assert.NotContains(t, body.Error, assert.AnError.Error(), "driver detail stays internal")
	})
}
