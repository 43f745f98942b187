package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessTriggersEndpointReturnsSummary(t *testing.T) {
	router, h, mock := newTestRouter(t)
	router.POST("/triggers/process", h.ProcessTriggers)

	// Nothing due; the endpoint still answers with a zeroed summary.
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "user_id", "reference_type", "reference_id", "scheduled_at"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/triggers/process", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		Processed int               `json:"processedCount"`
		Errors    []json.RawMessage `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Zero(t, summary.Processed)
	// Errors serializes as an empty array, not null.
	assert.Contains(t, w.Body.String(), `"errors":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCleanupEndpoint(t *testing.T) {
	router, h, mock := newTestRouter(t)
	router.POST("/triggers/cleanup", h.RunCleanup)

	mock.ExpectExec(regexp.QuoteMeta("DELETE n FROM notifications n")).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notification_triggers")).
		WillReturnResult(sqlmock.NewResult(0, 7))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/triggers/cleanup", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		Notifications int64 `json:"deletedNotifications"`
		Triggers      int64 `json:"deletedTriggers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(4), summary.Notifications)
	assert.Equal(t, int64(7), summary.Triggers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
