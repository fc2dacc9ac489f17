package export

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securyflex/internal/audit"
	"securyflex/internal/tracking"
	id "securyflex/pkg/domain"
)

func testService(t *testing.T, now time.Time) (*Service, *tracking.InMemoryStateStore, *audit.Publisher) {
	t.Helper()
	state := tracking.NewInMemoryStateStore()
	trail := audit.NewPublisher(audit.NewInMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	svc := New(state, trail, WithClock(func() time.Time { return now }))
	return svc, state, trail
}

func TestExportIncludesEverythingHeld(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	svc, state, trail := testService(t, now)

	guardID := id.NewGuardID()
	orgID := id.NewOrganizationID()

	require.NoError(t, state.Upsert(ctx, tracking.GuardLocationRecord{
		GuardID:        guardID,
		OrganizationID: orgID,
		UpdatedAt:      now,
	}, time.Hour))

	trail.Emit(ctx, audit.Event{
		Timestamp:  now.Add(-time.Hour),
		GuardID:    guardID,
		Action:     audit.ActionTrackingStarted,
		Decision:   "allowed",
		LegalBasis: audit.BasisConsent,
	})

	data, err := svc.Export(ctx, guardID, now.Add(-24*time.Hour), now)
	require.NoError(t, err)

	assert.Equal(t, guardID.String(), data.GuardID)
	assert.Equal(t, now, data.GeneratedAt)
	require.NotNil(t, data.ProximityData)
	assert.Equal(t, guardID, data.ProximityData.GuardID)
	require.Len(t, data.AuditTrail, 1)
	assert.Equal(t, audit.ActionTrackingStarted, data.AuditTrail[0].Action)
	assert.NotEmpty(t, data.PrivacyInfo.Purposes)
	assert.Equal(t, "consent", data.PrivacyInfo.LegalBasis)
}

func TestExportWithoutActiveSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	svc, _, _ := testService(t, now)

	guardID := id.NewGuardID()
	data, err := svc.Export(ctx, guardID, now.Add(-24*time.Hour), now)
	require.NoError(t, err)

	assert.Nil(t, data.ProximityData)
	assert.NotNil(t, data.AuditTrail)
	assert.Empty(t, data.AuditTrail)
}

func TestExportRecordsItselfInTrail(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	svc, _, trail := testService(t, now)

	guardID := id.NewGuardID()
	_, err := svc.Export(ctx, guardID, now.Add(-24*time.Hour), now)
	require.NoError(t, err)

	events, err := trail.List(ctx, guardID, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionDataExported, events[0].Action)
}
