package authgate

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Tokenizer issues and verifies opaque HS256 bearer tokens. A token carries
// only an expiry: verification is purely cryptographic and temporal, it has
// no notion of which account a token belongs to. The signing key lives for
// the process and is owned by the composition root.
type Tokenizer struct {
	signingKey      []byte
	tokenExpiration time.Duration
	logger          Logger
}

// NewTokenizer derives the signing key from the configured secret, or
// generates a random one when the secret is empty.
func NewTokenizer(tokenExpiration time.Duration, secret string, logger Logger) *Tokenizer {
	if logger == nil {
		logger = defLogger{}
	}

	key := []byte(secret)
	if secret == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// rand.Read only fails if the OS entropy source is broken,
			// at which point serving auth is pointless anyway.
			panic(fmt.Sprintf("tokenizer: cannot generate signing key: %v", err))
		}
		logger.Info("no secret key configured, generated a random signing key")
	}

	return &Tokenizer{
		signingKey:      key,
		tokenExpiration: tokenExpiration,
		logger:          logger,
	}
}

// Generate signs a token carrying only jti, iat and exp claims.
func (t *Tokenizer) Generate() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenExpiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryAuth, "failed to sign token").
			WithTextCode(TextCodeTokenMalformed).
			WithCode(errors.CodeBadRequest)
	}

	return signed, nil
}

// Verify checks the signature and that the embedded expiry has not elapsed,
// returning the token string unchanged on success. Any malformed, unsigned,
// tampered or expired token fails.
func (t *Tokenizer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			t.logger.Error("tokenizer rejected unexpected signing method: %v", tok.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if !token.Valid {
		return "", ErrTokenMalformed
	}

	return tokenString, nil
}
