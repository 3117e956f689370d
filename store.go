package authgate

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// UserStore is the persistence contract for accounts. Implementations scope
// and release their own connection per call; no caller holds one across
// operations.
type UserStore interface {
	// FindUser looks up by username and verifies the password. Unknown
	// username and wrong password are indistinguishable: both ErrNotFound.
	FindUser(ctx context.Context, credentials Credentials) (*User, error)
	// FindUserByToken matches the exact issued token string.
	FindUserByToken(ctx context.Context, token string) (*User, error)
	AddUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) (*User, error)
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]User, error)
}

type bunStore struct {
	db     *bun.DB
	logger Logger
	// compared on username misses to keep lookup timing flat
	dummyHash string
}

// NewUserStore returns a UserStore backed by the given bun handle.
func NewUserStore(db *bun.DB, logger Logger) UserStore {
	if logger == nil {
		logger = defLogger{}
	}
	return &bunStore{
		db:        db,
		logger:    logger,
		dummyHash: RandomPasswordHash(),
	}
}

func (s *bunStore) FindUser(ctx context.Context, credentials Credentials) (*User, error) {
	user := &User{}

	err := s.db.NewSelect().
		Model(user).
		Where("?TableAlias.username = ?", credentials.Username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = ComparePasswordAndHash(credentials.Password, s.dummyHash)
			return nil, ErrNotFound
		}
		return nil, storeError(err, "find user")
	}

	if err := ComparePasswordAndHash(credentials.Password, user.PasswordHash); err != nil {
		return nil, ErrNotFound
	}

	return user, nil
}

func (s *bunStore) FindUserByToken(ctx context.Context, token string) (*User, error) {
	user := &User{}

	err := s.db.NewSelect().
		Model(user).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeError(err, "find user by token")
	}

	return user, nil
}

func (s *bunStore) AddUser(ctx context.Context, user *User) error {
	_, err := s.db.NewInsert().
		Model(user).
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return storeError(err, "add user")
	}

	return nil
}

func (s *bunStore) UpdateUser(ctx context.Context, user *User) (*User, error) {
	res, err := s.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, storeError(err, "update user")
	}

	switch rows := affectedRows(res); rows {
	case 0:
		return nil, ErrNotFound
	case 1:
		return user, nil
	default:
		return nil, InvalidResultError("update", rows)
	}
}

func (s *bunStore) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.NewDelete().
		Model((*User)(nil)).
		Where("username = ?", username).
		Exec(ctx)

	if err != nil {
		return storeError(err, "delete user")
	}

	switch rows := affectedRows(res); rows {
	case 0:
		return ErrNotFound
	case 1:
		return nil
	default:
		return InvalidResultError("delete", rows)
	}
}

func (s *bunStore) ListUsers(ctx context.Context) ([]User, error) {
	var users []User

	err := s.db.NewSelect().
		Model(&users).
		Order("username ASC").
		Scan(ctx)

	if err != nil {
		return nil, storeError(err, "list users")
	}

	return users, nil
}

func affectedRows(res sql.Result) int64 {
	rows, err := res.RowsAffected()
	if err != nil {
		// sqlite and postgres drivers both report affected rows;
		// treat a driver that cannot as a zero-row result.
		return 0
	}
	return rows
}

// storeError classifies infrastructure faults (pool exhaustion, connectivity)
// as internal: retryable by the caller, never leaked with driver detail.
func storeError(err error, op string) error {
	return errors.Wrap(err, errors.CategoryInternal, "store error: "+op).
		WithCode(errors.CodeInternal)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
