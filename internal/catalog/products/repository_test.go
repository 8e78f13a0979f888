package products

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/atelier/internal/shared"
)

func TestMapUniqueViolation(t *testing.T) {
	err := mapUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "product_variants_sku_key"})
	require.ErrorIs(t, err, shared.ErrConflict)

	wrapped := mapUniqueViolation(errors.Join(errors.New("insert variant"), &pgconn.PgError{Code: "23505"}))
	require.ErrorIs(t, wrapped, shared.ErrConflict)
}

func TestMapUniqueViolationPassesOtherErrorsThrough(t *testing.T) {
	deadlock := &pgconn.PgError{Code: "40P01"}
	require.Equal(t, error(deadlock), mapUniqueViolation(deadlock))

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapUniqueViolation(plain))
}
