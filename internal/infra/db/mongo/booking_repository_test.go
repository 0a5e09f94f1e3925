package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	domainbooking "staysync/internal/domain/booking"
	domainrange "staysync/internal/domain/shared/daterange"
)

func mockRepo(mt *mtest.T) *BookingRepository {
	return &BookingRepository{
		col:    mt.Coll,
		nights: mt.DB.Collection("booking_nights"),
	}
}

func cancelledBooking(t *testing.T) *domainbooking.Booking {
	t.Helper()
	dr, err := domainrange.New(
		time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 4, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return &domainbooking.Booking{
		ID:          "bk-1",
		PropertyID:  "prop-1",
		RequesterID: "guest-1",
		Range:       dr,
		Status:      domainbooking.StatusCancelled,
		Version:     1,
	}
}

func TestSaveReleasesNightsOnCancel(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("release failure surfaces", func(mt *mtest.T) {
		repo := mockRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Name: "InterruptedAtShutdown", Message: "interrupted"}),
		)

		err := repo.Save(context.Background(), cancelledBooking(mt.T))
		require.Error(mt.T, err)
		assert.Contains(mt.T, err.Error(), "release nights for bk-1")
	})

	mt.Run("release success keeps save clean", func(mt *mtest.T) {
		repo := mockRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)

		b := cancelledBooking(mt.T)
		require.NoError(mt.T, repo.Save(context.Background(), b))
		assert.Equal(mt.T, int64(2), b.Version)
	})
}

func TestReserveConflictSurvivesFailedCleanup(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate night with failing cleanup", func(mt *mtest.T) {
		repo := mockRepo(mt)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Name: "InterruptedAtShutdown", Message: "interrupted"}),
		)

		b := cancelledBooking(mt.T)
		b.Status = domainbooking.StatusPending
		err := repo.Reserve(context.Background(), b)
		// The caller still sees the conflict, and the stranded-lock cleanup
		// failure rides along instead of vanishing.
		assert.ErrorIs(mt.T, err, domainbooking.ErrDateConflict)
		assert.Contains(mt.T, err.Error(), "release nights for bk-1")
	})

	mt.Run("duplicate night with clean cleanup", func(mt *mtest.T) {
		repo := mockRepo(mt)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)

		b := cancelledBooking(mt.T)
		b.Status = domainbooking.StatusPending
		err := repo.Reserve(context.Background(), b)
		assert.ErrorIs(mt.T, err, domainbooking.ErrDateConflict)
		assert.NotContains(mt.T, err.Error(), "release nights")
	})
}
