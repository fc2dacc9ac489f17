//go:build integration

package consent_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"securyflex/internal/consent"
	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
	"securyflex/pkg/testutil/containers"
)

type ConsentPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *consent.PostgresStore
}

func TestConsentPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ConsentPostgresSuite))
}

func (s *ConsentPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = consent.NewPostgresStore(s.postgres.DB)
}

func (s *ConsentPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "consent_records")
	s.Require().NoError(err)
}

func pendingRecord(guardID id.GuardID, purpose id.ConsentPurpose) consent.Record {
	return consent.Record{
		GuardID:        guardID,
		OrganizationID: id.NewOrganizationID(),
		Purpose:        purpose,
		Status:         consent.StatusPending,
		RequestedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *ConsentPostgresSuite) TestSaveGetRoundtrip() {
	ctx := context.Background()
	guardID := id.NewGuardID()
	record := pendingRecord(guardID, id.PurposeCompanyMonitoring)

	err := s.store.Save(ctx, record)
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, guardID, id.PurposeCompanyMonitoring)
	s.Require().NoError(err)
	s.Equal(record.GuardID, got.GuardID)
	s.Equal(record.OrganizationID, got.OrganizationID)
	s.Equal(record.Purpose, got.Purpose)
	s.Equal(consent.StatusPending, got.Status)
	s.True(record.RequestedAt.Equal(got.RequestedAt))
	s.Nil(got.GrantedAt)
	s.Nil(got.ExpiresAt)
	s.Nil(got.RevokedAt)
}

func (s *ConsentPostgresSuite) TestSaveUpserts() {
	ctx := context.Background()
	guardID := id.NewGuardID()
	record := pendingRecord(guardID, id.PurposeCompanyMonitoring)
	s.Require().NoError(s.store.Save(ctx, record))

	grantedAt := time.Now().UTC().Truncate(time.Microsecond)
	expiresAt := grantedAt.Add(30 * 24 * time.Hour)
	record.Status = consent.StatusGranted
	record.GrantedAt = &grantedAt
	record.ExpiresAt = &expiresAt
	s.Require().NoError(s.store.Save(ctx, record))

	got, err := s.store.Get(ctx, guardID, id.PurposeCompanyMonitoring)
	s.Require().NoError(err)
	s.Equal(consent.StatusGranted, got.Status)
	s.Require().NotNil(got.GrantedAt)
	s.True(grantedAt.Equal(*got.GrantedAt))
	s.Require().NotNil(got.ExpiresAt)
	s.True(expiresAt.Equal(*got.ExpiresAt))
}

func (s *ConsentPostgresSuite) TestGetUnknownReturnsNotFound() {
	_, err := s.store.Get(context.Background(), id.NewGuardID(), id.PurposeCompanyMonitoring)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ConsentPostgresSuite) TestListByGuardOrdersByPurpose() {
	ctx := context.Background()
	guardID := id.NewGuardID()
	s.Require().NoError(s.store.Save(ctx, pendingRecord(guardID, id.PurposeShiftVerification)))
	s.Require().NoError(s.store.Save(ctx, pendingRecord(guardID, id.PurposeCompanyMonitoring)))
	// A different guard's record must not leak in.
	s.Require().NoError(s.store.Save(ctx, pendingRecord(id.NewGuardID(), id.PurposeCompanyMonitoring)))

	records, err := s.store.ListByGuard(ctx, guardID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(id.PurposeCompanyMonitoring, records[0].Purpose)
	s.Equal(id.PurposeShiftVerification, records[1].Purpose)
}

func (s *ConsentPostgresSuite) TestUpdateStatusGrantClearsRevocation() {
	ctx := context.Background()
	guardID := id.NewGuardID()
	record := pendingRecord(guardID, id.PurposeCompanyMonitoring)
	revokedAt := record.RequestedAt
	record.Status = consent.StatusRevoked
	record.RevokedAt = &revokedAt
	s.Require().NoError(s.store.Save(ctx, record))

	grantedAt := time.Now().UTC().Truncate(time.Microsecond)
	err := s.store.UpdateStatus(ctx, guardID, id.PurposeCompanyMonitoring, consent.StatusGranted, grantedAt)
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, guardID, id.PurposeCompanyMonitoring)
	s.Require().NoError(err)
	s.Equal(consent.StatusGranted, got.Status)
	s.Require().NotNil(got.GrantedAt)
	s.True(grantedAt.Equal(*got.GrantedAt))
	s.Nil(got.RevokedAt)
}

func (s *ConsentPostgresSuite) TestUpdateStatusRevoke() {
	ctx := context.Background()
	guardID := id.NewGuardID()
	s.Require().NoError(s.store.Save(ctx, pendingRecord(guardID, id.PurposeCompanyMonitoring)))

	revokedAt := time.Now().UTC().Truncate(time.Microsecond)
	err := s.store.UpdateStatus(ctx, guardID, id.PurposeCompanyMonitoring, consent.StatusRevoked, revokedAt)
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, guardID, id.PurposeCompanyMonitoring)
	s.Require().NoError(err)
	s.Equal(consent.StatusRevoked, got.Status)
	s.Require().NotNil(got.RevokedAt)
	s.True(revokedAt.Equal(*got.RevokedAt))
}

func (s *ConsentPostgresSuite) TestUpdateStatusMissingRecord() {
	err := s.store.UpdateStatus(context.Background(), id.NewGuardID(), id.PurposeCompanyMonitoring, consent.StatusRevoked, time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentUpserts verifies that concurrent writes to the same
// (guard, purpose) key never error and leave exactly one readable record.
func (s *ConsentPostgresSuite) TestConcurrentUpserts() {
	ctx := context.Background()
	guardID := id.NewGuardID()
	const goroutines = 20

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.Save(ctx, pendingRecord(guardID, id.PurposeCompanyMonitoring))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	records, err := s.store.ListByGuard(ctx, guardID)
	s.Require().NoError(err)
	s.Len(records, 1)
}
