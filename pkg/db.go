package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// https://www.postgresql.org/docs/current/errcodes-appendix.html

// IsUniqueViolationError checks if the error is a postgres unique violation error
func IsUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsDuplicateKeyError reports a unique index conflict from either of the supported stores
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return IsUniqueViolationError(err) || mongo.IsDuplicateKeyError(err)
}
