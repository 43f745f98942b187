package handlers

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func inputRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "amount", "input_date", "description", "created_by", "created_at", "updated_at",
	})
}

func TestGetInput(t *testing.T) {
	router, h, mock := newTestRouter(t)
	router.GET("/inputs/:id", h.GetInput)

	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM inputs WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(inputRows().
			AddRow(3, "DAP Fertilizer", 50.0, now, nil, 5, now, now))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/inputs/3", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "DAP Fertilizer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInputNotFound(t *testing.T) {
	router, h, mock := newTestRouter(t)
	router.GET("/inputs/:id", h.GetInput)

	mock.ExpectQuery(regexp.QuoteMeta("FROM inputs WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnRows(inputRows())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/inputs/99", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInputBadID(t *testing.T) {
	router, h, _ := newTestRouter(t)
	router.GET("/inputs/:id", h.GetInput)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/inputs/abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
