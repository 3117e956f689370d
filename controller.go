package authgate

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// UserController orchestrates the store, the hasher and the tokenizer for
// the /user endpoints.
type UserController struct {
	Store     UserStore
	Tokenizer *Tokenizer
	Logger    Logger
}

type UserControllerOption func(*UserController) *UserController

func NewUserController(store UserStore, tokenizer *Tokenizer, opts ...UserControllerOption) *UserController {
	c := &UserController{
		Store:     store,
		Tokenizer: tokenizer,
		Logger:    defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

func WithControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterRoutes mounts the user endpoints under /user.
func (ctrl *UserController) RegisterRoutes(app *fiber.App, guard *Guard) {
	user := app.Group("/user")

	user.Post("/auth", ctrl.Authenticate)
	user.Post("/users", guard.RequireAdmin(), ctrl.AddUser)
	user.Post("/users/change_password", guard.RequireToken(), ctrl.ChangePassword)
	user.Delete("/users/:username", guard.RequireAdmin(), ctrl.DeleteUser)
	user.Get("/users", guard.RequireAdmin(), ctrl.ListUsers)
}

// AuthenticatePayload is the login body.
type AuthenticatePayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r AuthenticatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Authenticate verifies credentials, issues a fresh token and persists it on
// the account, overwriting whatever token was live before. The overwrite is
// the revocation mechanism: the previous token stops matching the store.
// When the persist step fails the new token is discarded and the store error
// surfaces; the client re-attempts authenticate.
func (ctrl *UserController) Authenticate(c *fiber.Ctx) error {
	payload := new(AuthenticatePayload)

	if err := c.BodyParser(payload); err != nil {
		return FormatError(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	user, err := ctrl.Store.FindUser(c.UserContext(), Credentials{
		Username: payload.Username,
		Password: payload.Password,
	})
	if err != nil {
		return err
	}

	token, err := ctrl.Tokenizer.Generate()
	if err != nil {
		return err
	}

	user.Token = token
	if _, err := ctrl.Store.UpdateUser(c.UserContext(), user); err != nil {
		return err
	}

	return c.JSON(ApiKey{Token: token})
}

// AddUserPayload is the admin-guarded account creation body.
type AddUserPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// Validate will run validation rules
func (r AddUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// AddUser hashes the password before the insert; plaintext never reaches
// the store.
func (ctrl *UserController) AddUser(c *fiber.Ctx) error {
	payload := new(AddUserPayload)

	if err := c.BodyParser(payload); err != nil {
		return FormatError(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return err
	}

	user := &User{
		Username:     payload.Username,
		Email:        payload.Email,
		PasswordHash: hash,
		IsAdmin:      payload.IsAdmin,
	}

	if err := ctrl.Store.AddUser(c.UserContext(), user); err != nil {
		return err
	}

	c.Set(fiber.HeaderLocation, fmt.Sprintf("/users/%s", user.Username))
	return c.SendStatus(fiber.StatusCreated)
}

// ChangePassword re-verifies the caller's current password before touching
// the stored hash. The caller is resolved through their own token, so no
// account other than the principal's can be mutated here.
func (ctrl *UserController) ChangePassword(c *fiber.Ctx) error {
	principal, ok := PrincipalFromCtx(c)
	if !ok {
		return ErrUnauthenticated
	}

	payload := new(NewPassword)

	if err := c.BodyParser(payload); err != nil {
		return FormatError(err)
	}

	if err := validation.ValidateStruct(payload,
		validation.Field(&payload.Current, validation.Required),
		validation.Field(&payload.New, validation.Required),
	); err != nil {
		return validationError(err)
	}

	user, err := ctrl.Store.FindUserByToken(c.UserContext(), principal.Token)
	if err != nil {
		return err
	}

	if err := ComparePasswordAndHash(payload.Current, user.PasswordHash); err != nil {
		return ErrInvalidPassword
	}

	hash, err := HashPassword(payload.New)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if _, err := ctrl.Store.UpdateUser(c.UserContext(), user); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

// DeleteUser removes the account and its live token with it.
func (ctrl *UserController) DeleteUser(c *fiber.Ctx) error {
	username := c.Params("username")

	if err := ctrl.Store.DeleteUser(c.UserContext(), username); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

// ListUsers returns every account mapped to the reduced projection;
// password hashes and tokens never cross this boundary.
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := ctrl.Store.ListUsers(c.UserContext())
	if err != nil {
		return err
	}

	partials := make([]PartialUser, 0, len(users))
	for _, user := range users {
		partials = append(partials, user.Partial())
	}

	return c.JSON(partials)
}

func validationError(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, err.Error()).
		WithCode(errors.CodeBadRequest)
}
