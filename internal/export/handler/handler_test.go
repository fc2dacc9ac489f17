package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"securyflex/internal/audit"
	"securyflex/internal/export"
	"securyflex/internal/export/handler/mocks"
	id "securyflex/pkg/domain"
	"securyflex/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/export-mocks.go -package=mocks Service
func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mockService, logger, nil, nil), mockService
}

func TestHandleDataExport(t *testing.T) {
	handler, mockService := newTestHandler(t)
	guardID := id.NewGuardID()

	mockService.EXPECT().Export(gomock.Any(), guardID, gomock.Any(), gomock.Any()).
		Return(export.SubjectData{
			GuardID:     guardID.String(),
			GeneratedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			AuditTrail: []audit.Event{
				{GuardID: guardID, Action: audit.ActionTrackingStarted, Decision: "allowed"},
			},
			PrivacyInfo: export.PrivacyInfo{LegalBasis: "consent"},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/me/data-export", nil)
	req = req.WithContext(requestcontext.WithGuardID(context.Background(), guardID.String()))
	w := httptest.NewRecorder()
	handler.handleDataExport(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "data-export.json")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, guardID.String(), resp["guardId"])
	trail := resp["auditTrail"].([]any)
	require.Len(t, trail, 1)
}

func TestHandleDataExportWindow(t *testing.T) {
	handler, mockService := newTestHandler(t)
	guardID := id.NewGuardID()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mockService.EXPECT().Export(gomock.Any(), guardID, from, to).
		Return(export.SubjectData{GuardID: guardID.String()}, nil)

	url := "/me/data-export?from=" + from.Format(time.RFC3339) + "&to=" + to.Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req = req.WithContext(requestcontext.WithGuardID(context.Background(), guardID.String()))
	w := httptest.NewRecorder()
	handler.handleDataExport(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleDataExportBadTimestamp(t *testing.T) {
	handler, _ := newTestHandler(t)
	guardID := id.NewGuardID()

	req := httptest.NewRequest(http.MethodGet, "/me/data-export?from=yesterday", nil)
	req = req.WithContext(requestcontext.WithGuardID(context.Background(), guardID.String()))
	w := httptest.NewRecorder()
	handler.handleDataExport(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDataExportMissingAuth(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/me/data-export", nil)
	w := httptest.NewRecorder()
	handler.handleDataExport(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
