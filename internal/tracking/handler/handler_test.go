package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"securyflex/internal/proximity"
	"securyflex/internal/tracking"
	"securyflex/internal/tracking/handler/mocks"
	id "securyflex/pkg/domain"
	dErrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/tracking-mocks.go -package=mocks Service
type TrackingHandlerSuite struct {
	suite.Suite
	ctx     context.Context
	guardID id.GuardID
	orgID   id.OrganizationID
}

func (s *TrackingHandlerSuite) SetupSuite() {
	s.guardID = id.NewGuardID()
	s.orgID = id.NewOrganizationID()
	ctx := requestcontext.WithGuardID(context.Background(), s.guardID.String())
	s.ctx = requestcontext.WithOrganizationID(ctx, s.orgID.String())
}

func TestTrackingHandlerSuite(t *testing.T) {
	suite.Run(t, new(TrackingHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mockService, logger, nil, nil), mockService
}

// routeCtx attaches a chi route parameter so URL parsing in handlers works
// without going through the router.
func routeCtx(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func (s *TrackingHandlerSuite) record() tracking.GuardLocationRecord {
	name := "Amsterdam HQ"
	distance := 100
	return tracking.GuardLocationRecord{
		GuardID:            s.guardID,
		OrganizationID:     s.orgID,
		AvailabilityStatus: tracking.AvailabilityOnDuty,
		Classification: proximity.Classification{
			Status:              proximity.StatusAtWorkLocation,
			NearestWorkAreaName: &name,
			ApproximateDistance: &distance,
		},
		IsLocationEnabled: true,
	}
}

func (s *TrackingHandlerSuite) TestInitializeTracking() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().InitializeTracking(gomock.Any(), s.guardID, s.orgID).
		Return(tracking.TrackingResult{Success: true, Message: "Tracking started"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/tracking/initialize", nil).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleInitialize(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp tracking.TrackingResult
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(s.T(), resp.Success)
	assert.False(s.T(), resp.RequiresConsent)
}

func (s *TrackingHandlerSuite) TestInitializeTrackingRequiresConsent() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().InitializeTracking(gomock.Any(), s.guardID, s.orgID).
		Return(tracking.TrackingResult{RequiresConsent: true, Message: "Consent required"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/tracking/initialize", nil).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleInitialize(w, req)

	// Missing consent is an expected outcome, not an HTTP error.
	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp tracking.TrackingResult
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(s.T(), resp.RequiresConsent)
	assert.False(s.T(), resp.Success)
}

func (s *TrackingHandlerSuite) TestInitializeTrackingPermissionDenied() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().InitializeTracking(gomock.Any(), s.guardID, s.orgID).
		Return(tracking.TrackingResult{}, dErrors.New(dErrors.CodePermissionDenied, "location permission not granted"))

	req := httptest.NewRequest(http.MethodPost, "/tracking/initialize", nil).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleInitialize(w, req)

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TrackingHandlerSuite) TestStopTracking() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().StopTracking(gomock.Any(), s.guardID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/tracking/stop", nil).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleStop(w, req)

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *TrackingHandlerSuite) TestSetAvailability() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().SetAvailability(s.guardID, tracking.AvailabilityOnDuty)

	body, _ := json.Marshal(map[string]string{"status": "on_duty"})
	req := httptest.NewRequest(http.MethodPut, "/tracking/availability", bytes.NewReader(body)).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleSetAvailability(w, req)

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *TrackingHandlerSuite) TestSetAvailabilityWithAssignment() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().SetAvailability(s.guardID, tracking.AvailabilityOnDuty)
	mockService.EXPECT().SetAssignment(s.guardID, "shift-42")

	body, _ := json.Marshal(map[string]string{"status": "on_duty", "assignmentId": "shift-42"})
	req := httptest.NewRequest(http.MethodPut, "/tracking/availability", bytes.NewReader(body)).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleSetAvailability(w, req)

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *TrackingHandlerSuite) TestSetAvailabilityUnknownStatus() {
	handler, _ := newTestHandler(s.T())

	body, _ := json.Marshal(map[string]string{"status": "napping"})
	req := httptest.NewRequest(http.MethodPut, "/tracking/availability", bytes.NewReader(body)).WithContext(s.ctx)
	w := httptest.NewRecorder()
	handler.handleSetAvailability(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TrackingHandlerSuite) TestCurrentLocationOwnRecord() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().CurrentLocation(gomock.Any(), s.guardID).Return(s.record(), nil)

	req := httptest.NewRequest(http.MethodGet, "/guards/"+s.guardID.String()+"/location", nil).WithContext(s.ctx)
	req = routeCtx(req, "guardID", s.guardID.String())
	w := httptest.NewRecorder()
	handler.handleCurrentLocation(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	classification := resp["classification"].(map[string]any)
	assert.Equal(s.T(), "at_work_location", classification["status"])
	assert.Equal(s.T(), float64(100), classification["approximateDistanceMeters"])
	// Raw coordinates must never appear in any read surface.
	assert.NotContains(s.T(), w.Body.String(), "latitude")
	assert.NotContains(s.T(), w.Body.String(), "longitude")
}

func (s *TrackingHandlerSuite) TestCurrentLocationForeignGuardForbidden() {
	handler, mockService := newTestHandler(s.T())
	otherGuard := id.NewGuardID()
	foreign := s.record()
	foreign.GuardID = otherGuard
	foreign.OrganizationID = id.NewOrganizationID()
	mockService.EXPECT().CurrentLocation(gomock.Any(), otherGuard).Return(foreign, nil)

	req := httptest.NewRequest(http.MethodGet, "/guards/"+otherGuard.String()+"/location", nil).WithContext(s.ctx)
	req = routeCtx(req, "guardID", otherGuard.String())
	w := httptest.NewRecorder()
	handler.handleCurrentLocation(w, req)

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TrackingHandlerSuite) TestOrganizationLocations() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().OrganizationLocations(gomock.Any(), s.orgID).
		Return([]tracking.GuardLocationRecord{s.record()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+s.orgID.String()+"/guards/locations", nil).WithContext(s.ctx)
	req = routeCtx(req, "orgID", s.orgID.String())
	w := httptest.NewRecorder()
	handler.handleOrganizationLocations(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string][]map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp["guards"], 1)
}

func (s *TrackingHandlerSuite) TestOrganizationLocationsForeignOrgForbidden() {
	handler, _ := newTestHandler(s.T())
	otherOrg := id.NewOrganizationID()

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+otherOrg.String()+"/guards/locations", nil).WithContext(s.ctx)
	req = routeCtx(req, "orgID", otherOrg.String())
	w := httptest.NewRecorder()
	handler.handleOrganizationLocations(w, req)

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TrackingHandlerSuite) TestLocationStreamPushesUpdates() {
	handler, mockService := newTestHandler(s.T())

	updates := make(chan tracking.GuardLocationRecord, 2)
	updates <- s.record()
	close(updates)

	mockService.EXPECT().GuardLocationStream(gomock.Any(), s.guardID).
		Return((<-chan tracking.GuardLocationRecord)(updates), nil)
	mockService.EXPECT().CurrentLocation(gomock.Any(), s.guardID).Return(s.record(), nil)

	req := httptest.NewRequest(http.MethodGet, "/guards/"+s.guardID.String()+"/location/stream", nil).WithContext(s.ctx)
	req = routeCtx(req, "guardID", s.guardID.String())
	w := httptest.NewRecorder()
	handler.handleLocationStream(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "text/event-stream", w.Header().Get("Content-Type"))

	// One snapshot event plus one pushed update.
	events := strings.Count(w.Body.String(), "data: ")
	assert.Equal(s.T(), 2, events)
}

func (s *TrackingHandlerSuite) TestOrganizationStreamSendsSnapshots() {
	handler, mockService := newTestHandler(s.T())

	updates := make(chan []tracking.GuardLocationRecord, 1)
	updates <- []tracking.GuardLocationRecord{s.record()}
	close(updates)

	mockService.EXPECT().OrganizationLocationsStream(gomock.Any(), s.orgID).
		Return((<-chan []tracking.GuardLocationRecord)(updates), nil)
	mockService.EXPECT().OrganizationLocations(gomock.Any(), s.orgID).
		Return([]tracking.GuardLocationRecord{s.record()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+s.orgID.String()+"/guards/locations/stream", nil).WithContext(s.ctx)
	req = routeCtx(req, "orgID", s.orgID.String())
	w := httptest.NewRecorder()
	handler.handleOrganizationStream(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	events := strings.Count(w.Body.String(), "data: ")
	assert.Equal(s.T(), 2, events)
}
