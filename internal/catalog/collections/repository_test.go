package collections

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/atelier/internal/shared"
)

func TestMapUniqueViolation(t *testing.T) {
	err := mapUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "collections_slug_key"})
	require.ErrorIs(t, err, shared.ErrConflict)
}
