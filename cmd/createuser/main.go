// Command createuser bootstraps the first admin account: every other way of
// creating a user requires an admin token, which a fresh database cannot
// issue yet.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/term"

	"github.com/authgate/authgate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return authgate.ErrEmptyDBURL
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dbURL)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if err := authgate.EnsureSchema(ctx, db); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Enter the username (admin): ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}

	fmt.Print("Enter the password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Print("Enter the email address: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	hash, err := authgate.HashPassword(strings.TrimSpace(string(password)))
	if err != nil {
		return err
	}

	store := authgate.NewUserStore(db, nil)
	if err := store.AddUser(ctx, &authgate.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		IsAdmin:      true,
	}); err != nil {
		return err
	}

	fmt.Printf("created admin user %q\n", username)
	return nil
}
