package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
	"github.com/ekosetor/rvmledger/internal/testutil"
)

func pendingReview(user models.User, vendorRecordID string, points float64, submittedAt time.Time) models.Review {
	return models.Review{
		VendorRecordID:     vendorRecordID,
		UserID:             user.ID,
		Phone:              user.Phone,
		DeviceNo:           "dev-1",
		WasteType:          "Paper",
		APIWeight:          0.55,
		TheoreticalWeight:  0.5,
		MachineGivenPoints: decimal.NewFromFloat(points),
		RatePerKg:          decimal.NewFromInt(10),
		SubmittedAt:        submittedAt,
	}
}

func TestReviewRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Run fn in a rolled-back transaction with a user created for the test
	withTx := func(t *testing.T, fn func(storage repository.Storage, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)

			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
				Phone:    "6281234567890",
				Nickname: "test-user",
			})
			require.NoError(t, err, "creating user should not fail")

			fn(storage, user)
		})
	}

	t.Run("CreateReview", func(t *testing.T) {
		t.Run("create and read back", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				created, err := storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 5, base))

				require.NoError(t, err)
				require.NotEmpty(t, created.ID)
				require.Equal(t, models.ReviewStatusPending, created.Status)
				require.Equal(t, models.ReviewSourceFetch, created.Source)
				require.Nil(t, created.ConfirmedWeight)
				require.Nil(t, created.CalculatedPoints)
				require.Nil(t, created.ReviewedAt)

				got, err := storage.Review().GetReview(t.Context(), created.ID)
				require.NoError(t, err)
				require.Equal(t, "rec-1", got.VendorRecordID)
				require.Equal(t, "dev-1", got.DeviceNo)
				require.Equal(t, "Paper", got.WasteType)
				require.InDelta(t, 0.55, got.APIWeight, 1e-9)
				require.True(t, got.MachineGivenPoints.Equal(decimal.NewFromInt(5)))
				require.True(t, got.RatePerKg.Equal(decimal.NewFromInt(10)))
				require.True(t, got.SubmittedAt.Equal(base))
			})
		})

		t.Run("duplicate vendor record rejected", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				_, err := storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 5, base))
				require.NoError(t, err)

				_, err = storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 7, base.Add(time.Hour)))
				require.ErrorIs(t, err, apperrors.ErrReviewAlreadyExists)

				reviews, err := storage.Review().ListReviews(t.Context(), repository.ListReviewsOpts{})
				require.NoError(t, err)
				require.Len(t, reviews, 1, "the original row stays untouched")
				require.True(t, reviews[0].MachineGivenPoints.Equal(decimal.NewFromInt(5)))
			})
		})
	})

	t.Run("ExistsByVendorRecordID", func(t *testing.T) {
		withTx(t, func(storage repository.Storage, user models.User) {
			exists, err := storage.Review().ExistsByVendorRecordID(t.Context(), "rec-1")
			require.NoError(t, err)
			require.False(t, exists)

			_, err = storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 5, base))
			require.NoError(t, err)

			exists, err = storage.Review().ExistsByVendorRecordID(t.Context(), "rec-1")
			require.NoError(t, err)
			require.True(t, exists)
		})
	})

	t.Run("ListReviews", func(t *testing.T) {
		seed := func(t *testing.T, storage repository.Storage, user models.User) {
			for i, points := range []float64{5, 3, 1} {
				_, err := storage.Review().CreateReview(t.Context(),
					pendingReview(user, uuid.NewString(), points, base.Add(time.Duration(i)*time.Minute)))
				require.NoError(t, err)
			}
		}

		t.Run("oldest first ordering", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				seed(t, storage, user)

				reviews, err := storage.Review().ListReviews(t.Context(), repository.ListReviewsOpts{
					UserID:      &user.ID,
					OldestFirst: true,
				})

				require.NoError(t, err)
				require.Len(t, reviews, 3)
				require.True(t, reviews[0].MachineGivenPoints.Equal(decimal.NewFromInt(5)))
				require.True(t, reviews[2].MachineGivenPoints.Equal(decimal.NewFromInt(1)))
			})
		})

		t.Run("newest first is the default", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				seed(t, storage, user)

				reviews, err := storage.Review().ListReviews(t.Context(), repository.ListReviewsOpts{})

				require.NoError(t, err)
				require.Len(t, reviews, 3)
				require.True(t, reviews[0].MachineGivenPoints.Equal(decimal.NewFromInt(1)))
			})
		})

		t.Run("status filter and limit", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				seed(t, storage, user)

				reviews, err := storage.Review().ListReviews(t.Context(), repository.ListReviewsOpts{
					UserID:      &user.ID,
					Statuses:    []string{models.ReviewStatusPending},
					OldestFirst: true,
					Limit:       2,
				})

				require.NoError(t, err)
				require.Len(t, reviews, 2)

				none, err := storage.Review().ListReviews(t.Context(), repository.ListReviewsOpts{
					Statuses: []string{models.ReviewStatusRejected},
				})
				require.NoError(t, err)
				require.Empty(t, none)
			})
		})

		t.Run("joined user display fields", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				seed(t, storage, user)

				reviews, err := storage.Review().ListReviewsWithUser(t.Context(), repository.ListReviewsOpts{Limit: 1})

				require.NoError(t, err)
				require.Len(t, reviews, 1)
				require.Equal(t, "test-user", reviews[0].UserNickname)
				require.Equal(t, user.Phone, reviews[0].UserPhone)
			})
		})
	})

	t.Run("SumMachinePoints", func(t *testing.T) {
		withTx(t, func(storage repository.Storage, user models.User) {
			sum, err := storage.Review().SumMachinePoints(t.Context(), user.ID, models.ReviewStatusVerified)
			require.NoError(t, err)
			require.True(t, sum.IsZero(), "empty ledger sums to zero")

			r1, err := storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 5, base))
			require.NoError(t, err)
			_, err = storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-2", 3, base.Add(time.Minute)))
			require.NoError(t, err)

			_, err = storage.Review().Resolve(t.Context(), repository.ResolveReviewParams{
				ID:               r1.ID,
				Status:           models.ReviewStatusVerified,
				ConfirmedWeight:  0.55,
				CalculatedPoints: decimal.NewFromInt(5),
				ReviewerNote:     "ok",
				ReviewedAt:       time.Now(),
			})
			require.NoError(t, err)

			sum, err = storage.Review().SumMachinePoints(t.Context(), user.ID, models.ReviewStatusVerified)
			require.NoError(t, err)
			require.True(t, sum.Equal(decimal.NewFromInt(5)), "pending rows do not count, got %s", sum)
		})
	})

	t.Run("Resolve", func(t *testing.T) {
		t.Run("sets terminal fields", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				created, err := storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 5, base))
				require.NoError(t, err)

				reviewedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
				resolved, err := storage.Review().Resolve(t.Context(), repository.ResolveReviewParams{
					ID:               created.ID,
					Status:           models.ReviewStatusVerified,
					ConfirmedWeight:  0.5,
					CalculatedPoints: decimal.NewFromInt(5),
					ReviewerNote:     "Auto-Verified via Live Point Sync",
					ReviewedAt:       reviewedAt,
				})

				require.NoError(t, err)
				require.Equal(t, models.ReviewStatusVerified, resolved.Status)
				require.NotNil(t, resolved.ConfirmedWeight)
				require.InDelta(t, 0.5, *resolved.ConfirmedWeight, 1e-9)
				require.NotNil(t, resolved.CalculatedPoints)
				require.True(t, resolved.CalculatedPoints.Equal(decimal.NewFromInt(5)))
				require.Equal(t, "Auto-Verified via Live Point Sync", resolved.ReviewerNote)
				require.NotNil(t, resolved.ReviewedAt)
				require.True(t, resolved.ReviewedAt.Equal(reviewedAt))
			})
		})

		t.Run("terminal state is one-way", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				created, err := storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-1", 5, base))
				require.NoError(t, err)

				params := repository.ResolveReviewParams{
					ID:               created.ID,
					Status:           models.ReviewStatusRejected,
					CalculatedPoints: decimal.Zero,
					ReviewerNote:     "bad photo",
					ReviewedAt:       time.Now(),
				}
				_, err = storage.Review().Resolve(t.Context(), params)
				require.NoError(t, err)

				params.Status = models.ReviewStatusVerified
				_, err = storage.Review().Resolve(t.Context(), params)
				require.ErrorIs(t, err, apperrors.ErrReviewAlreadyResolved)

				got, err := storage.Review().GetReview(t.Context(), created.ID)
				require.NoError(t, err)
				require.Equal(t, models.ReviewStatusRejected, got.Status)
			})
		})

		t.Run("missing review", func(t *testing.T) {
			withTx(t, func(storage repository.Storage, user models.User) {
				_, err := storage.Review().Resolve(t.Context(), repository.ResolveReviewParams{
					ID:         uuid.New(),
					Status:     models.ReviewStatusVerified,
					ReviewedAt: time.Now(),
				})

				require.ErrorIs(t, err, apperrors.ErrReviewNotFound)
			})
		})
	})

	t.Run("DeleteResolvedBefore", func(t *testing.T) {
		withTx(t, func(storage repository.Storage, user models.User) {
			old := base.AddDate(-1, 0, 0)

			stale, err := storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-old", 5, old))
			require.NoError(t, err)
			_, err = storage.Review().Resolve(t.Context(), repository.ResolveReviewParams{
				ID:         stale.ID,
				Status:     models.ReviewStatusRejected,
				ReviewedAt: time.Now(),
			})
			require.NoError(t, err)

			// pending rows survive retention regardless of age
			_, err = storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-old-pending", 3, old))
			require.NoError(t, err)
			_, err = storage.Review().CreateReview(t.Context(), pendingReview(user, "rec-fresh", 1, base))
			require.NoError(t, err)

			deleted, err := storage.Review().DeleteResolvedBefore(t.Context(), base.AddDate(0, -6, 0))
			require.NoError(t, err)
			require.EqualValues(t, 1, deleted)

			reviews, err := storage.Review().ListReviews(t.Context(), repository.ListReviewsOpts{})
			require.NoError(t, err)
			require.Len(t, reviews, 2)
		})
	})
}
