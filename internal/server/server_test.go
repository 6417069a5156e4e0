package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	t.Run("coded errors keep their message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, connect.NewError(connect.CodeNotFound, errors.New("no sso configuration found")))

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.JSONEq(t, `{"error":"no sso configuration found"}`, rec.Body.String())
	})

	t.Run("internal errors never expose wrapped detail", func(t *testing.T) {
		cause := fmt.Errorf("failed to lock invitation: %w", errors.New("connection refused"))
		rec := httptest.NewRecorder()
		writeError(rec, connect.NewError(connect.CodeInternal, cause))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, errors.New("raw store error"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	})
}
