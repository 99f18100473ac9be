package account

import (
	"context"
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidUsername reports whether name is 3-20 characters of letters, digits or underscore.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// Oracle answers whether a username belongs to a registered account.
type Oracle interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, username string) (bool, error)

func (f OracleFunc) Exists(ctx context.Context, username string) (bool, error) {
	return f(ctx, username)
}
