package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/models"
)

// Storage bundles all ledger repositories. InTx runs fn against a storage
// bound to a single transaction, committing on nil and rolling back on error.
type Storage interface {
	User() UserRepo
	Review() ReviewRepo
	Withdrawal() WithdrawalRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Phone     string
	Nickname  string
	AvatarURL string
}

type UserRepo interface {
	// Create user
	// If user with the phone exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)

	// List all known users (harvest walks every one of them)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Fleet-wide denormalized aggregates for the dashboard
	AggregateTotals(ctx context.Context) (points decimal.Decimal, weight float64, err error)
}

// ListReviewsOpts filter and ordering for review listing.
// Reviews are ordered by submission time, newest first unless OldestFirst.
type ListReviewsOpts struct {
	UserID      *uuid.UUID
	Statuses    []string
	OldestFirst bool
	Limit       int
}

type ResolveReviewParams struct {
	ID               uuid.UUID
	Status           string
	ConfirmedWeight  float64
	CalculatedPoints decimal.Decimal
	ReviewerNote     string
	ReviewedAt       time.Time
}

type ReviewRepo interface {
	// Create review for a vendor record
	// The vendor_record_id unique constraint is the authoritative dedup:
	// a duplicate insert must return apperrors.ErrReviewAlreadyExists
	CreateReview(ctx context.Context, review models.Review) (models.Review, error)

	// Cheap pre-check before CreateReview, an optimization only
	ExistsByVendorRecordID(ctx context.Context, vendorRecordID string) (bool, error)

	GetReview(ctx context.Context, id uuid.UUID) (models.Review, error)

	ListReviews(ctx context.Context, opts ListReviewsOpts) ([]models.Review, error)

	// ListReviews with user display fields joined for presentation
	ListReviewsWithUser(ctx context.Context, opts ListReviewsOpts) ([]models.ReviewWithUser, error)

	// Sum of machine_given_points over a user's reviews in the given status
	SumMachinePoints(ctx context.Context, userID uuid.UUID, status string) (decimal.Decimal, error)

	// Resolve moves a PENDING review to a terminal status, setting the
	// confirmed measurements, note and review time in one update.
	// Must return apperrors.ErrReviewAlreadyResolved when the row already
	// left PENDING and apperrors.ErrReviewNotFound when it does not exist.
	Resolve(ctx context.Context, params ResolveReviewParams) (models.Review, error)

	// Retention cleanup: delete resolved reviews submitted before cutoff.
	// Pending rows are never deleted. Returns the number of deleted rows.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CreateWithdrawalParams struct {
	UserID uuid.UUID
	Amount decimal.Decimal
	Status string
}

type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) (models.Withdrawal, error)

	// Sum of a user's withdrawals in the states that count as money taken
	// out (models.WithdrawnStatuses)
	SumWithdrawn(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// Fleet-wide sum of all non-REJECTED withdrawal amounts
	SumNonRejected(ctx context.Context) (decimal.Decimal, error)

	CountByStatus(ctx context.Context, status string) (int64, error)

	// Most recent withdrawals with user display fields, newest first
	ListRecentWithUser(ctx context.Context, limit int) ([]models.WithdrawalWithUser, error)
}
