package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsNotFound reports whether a repository lookup found no row.
func IsNotFound(err error) bool {
	return isNoRows(err)
}
