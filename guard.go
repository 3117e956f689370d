package authgate

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// principalKey is the request-locals slot holding the resolved ApiKey.
const principalKey = "api_key"

// Guard turns a raw Authorization header into an authorized principal or a
// classified rejection. It runs two independent checks in a fixed order:
// the cryptographic check first, then the equality check against the token
// persisted on the account. Running the crypto check first avoids a store
// round-trip on obviously invalid tokens and the timing side channel that
// would come with it.
type Guard struct {
	tokenizer *Tokenizer
	store     UserStore
	logger    Logger
}

func NewGuard(tokenizer *Tokenizer, store UserStore, logger Logger) *Guard {
	if logger == nil {
		logger = defLogger{}
	}
	return &Guard{
		tokenizer: tokenizer,
		store:     store,
		logger:    logger,
	}
}

// RequireAdmin admits only accounts with is_admin set. A valid token on a
// non-admin account is the single failure mode distinguishable from 401.
func (g *Guard) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, token, err := g.resolve(c)
		if err != nil {
			return err
		}

		if !user.IsAdmin {
			return ErrForbidden
		}

		c.Locals(principalKey, &ApiKey{Token: token})
		return c.Next()
	}
}

// RequireToken admits any account that holds a live token.
func (g *Guard) RequireToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, token, err := g.resolve(c)
		if err != nil {
			return err
		}

		c.Locals(principalKey, &ApiKey{Token: token})
		return c.Next()
	}
}

// resolve walks the pipeline: header → crypto check → store lookup. Every
// failure before the privilege check is downgraded to ErrUnauthenticated so
// a prober cannot tell a missing header from a bad or revoked token.
func (g *Guard) resolve(c *fiber.Ctx) (*User, string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, "", ErrUnauthenticated
	}

	// An absent "Bearer" segment yields the empty string on purpose: it has
	// to fail verification below, not become its own error category.
	token := ""
	if parts := strings.Split(header, "Bearer"); len(parts) > 1 {
		token = strings.TrimSpace(parts[1])
	}

	if _, err := g.tokenizer.Verify(token); err != nil {
		g.logger.Debug("guard rejected token: %s", err)
		return nil, "", ErrUnauthenticated
	}

	user, err := g.store.FindUserByToken(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.IsNotFound(err) {
			return nil, "", ErrUnauthenticated
		}
		g.logger.Error("guard store lookup failed: %s", err)
		return nil, "", errors.Wrap(err, errors.CategoryInternal, "internal error").
			WithCode(errors.CodeInternal)
	}

	return user, token, nil
}

// PrincipalFromCtx returns the ApiKey stored by the guard, if any.
func PrincipalFromCtx(c *fiber.Ctx) (*ApiKey, bool) {
	principal, ok := c.Locals(principalKey).(*ApiKey)
	return principal, ok && principal != nil
}
