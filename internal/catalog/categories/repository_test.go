package categories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/atelier/internal/shared"
)

func TestMapUniqueViolation(t *testing.T) {
	err := mapUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "categories_slug_key"}))
	require.ErrorIs(t, err, shared.ErrConflict)

	other := errors.New("timeout")
	require.Equal(t, other, mapUniqueViolation(other))
}
