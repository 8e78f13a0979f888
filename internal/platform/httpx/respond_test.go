package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/atelier/internal/shared"
)

func TestProblemUsesProblemJSONMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, 409, "Conflict", "slug already taken")

	require.Equal(t, 409, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Conflict", body.Title)
	require.Equal(t, 409, body.Status)
	require.Equal(t, "slug already taken", body.Detail)
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("category 9: %w", shared.ErrNotFound), 404},
		{fmt.Errorf("bad cursor: %w", shared.ErrValidation), 400},
		{fmt.Errorf("duplicate sku: %w", shared.ErrConflict), 409},
		{errors.New("connection reset"), 500},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}

	// Internal errors must not leak their message to the client.
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dsn password=hunter2"))
	require.NotContains(t, rec.Body.String(), "hunter2")
}
