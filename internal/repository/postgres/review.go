package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

type ReviewRepo struct {
	DB DBTX
}

const reviewColumns = `id, vendor_record_id, user_id, phone, device_no, waste_type,
	api_weight, theoretical_weight, confirmed_weight, machine_given_points,
	calculated_points, rate_per_kg, bin_weight_snapshot, photo_url,
	status, source, reviewer_note, submitted_at, reviewed_at`

const createReview = `-- name: CreateReview
INSERT INTO submission_reviews (
	id, vendor_record_id, user_id, phone, device_no, waste_type,
	api_weight, theoretical_weight, machine_given_points,
	rate_per_kg, bin_weight_snapshot, photo_url, status, source, submitted_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (vendor_record_id) DO NOTHING
RETURNING ` + reviewColumns

// CreateReview inserts a PENDING review for a vendor record. The unique
// constraint on vendor_record_id is the authoritative dedup signal: a
// conflicting insert returns apperrors.ErrReviewAlreadyExists without
// touching the existing row.
func (r *ReviewRepo) CreateReview(ctx context.Context, review models.Review) (models.Review, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.Status == "" {
		review.Status = models.ReviewStatusPending
	}
	if review.Source == "" {
		review.Source = models.ReviewSourceFetch
	}

	rows, _ := r.DB.Query(ctx, createReview,
		review.ID, review.VendorRecordID, review.UserID, review.Phone,
		review.DeviceNo, review.WasteType, review.APIWeight, review.TheoreticalWeight,
		review.MachineGivenPoints, review.RatePerKg, review.BinWeightSnapshot,
		review.PhotoURL, review.Status, review.Source, review.SubmittedAt,
	)

	created, err := pgx.CollectOneRow(rows, rowToReview)

	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Nothing inserted means the vendor record is already in the ledger
		return created, apperrors.ErrReviewAlreadyExists
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrReviewAlreadyExists
		}
		return created, fmt.Errorf("db error: %w", err)
	}
}

const existsByVendorRecordID = `-- name: ExistsByVendorRecordID
SELECT EXISTS (SELECT 1 FROM submission_reviews WHERE vendor_record_id = $1)
`

func (r *ReviewRepo) ExistsByVendorRecordID(ctx context.Context, vendorRecordID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, existsByVendorRecordID, vendorRecordID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

const getReview = `-- name: GetReview
SELECT ` + reviewColumns + `
FROM submission_reviews
WHERE id = $1
`

func (r *ReviewRepo) GetReview(ctx context.Context, id uuid.UUID) (models.Review, error) {
	rows, _ := r.DB.Query(ctx, getReview, id)
	review, err := pgx.CollectOneRow(rows, rowToReview)

	switch {
	case err == nil:
		return review, nil
	case errors.Is(err, pgx.ErrNoRows):
		return review, apperrors.ErrReviewNotFound
	default:
		return review, fmt.Errorf("db error: %w", err)
	}
}

func (r *ReviewRepo) ListReviews(ctx context.Context, opts repository.ListReviewsOpts) ([]models.Review, error) {
	query, args := buildListReviews("", opts)

	rows, _ := r.DB.Query(ctx, query, args...)
	reviews, err := pgx.CollectRows(rows, rowToReview)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return reviews, nil
}

func (r *ReviewRepo) ListReviewsWithUser(ctx context.Context, opts repository.ListReviewsOpts) ([]models.ReviewWithUser, error) {
	query, args := buildListReviews(", u.nickname, u.avatar_url, u.phone", opts)

	rows, _ := r.DB.Query(ctx, query, args...)
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ReviewWithUser, error) {
		var rv models.ReviewWithUser
		err := row.Scan(
			&rv.ID, &rv.VendorRecordID, &rv.UserID, &rv.Phone, &rv.DeviceNo, &rv.WasteType,
			&rv.APIWeight, &rv.TheoreticalWeight, &rv.ConfirmedWeight, &rv.MachineGivenPoints,
			&rv.CalculatedPoints, &rv.RatePerKg, &rv.BinWeightSnapshot, &rv.PhotoURL,
			&rv.Status, &rv.Source, &rv.ReviewerNote, &rv.SubmittedAt, &rv.ReviewedAt,
			&rv.UserNickname, &rv.UserAvatarURL, &rv.UserPhone,
		)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return reviews, nil
}

// buildListReviews assembles the listing query. Filters are equality and
// set-membership only, ordering is always by submission time.
func buildListReviews(extraColumns string, opts repository.ListReviewsOpts) (string, []any) {
	query := "SELECT " + prefixColumns("r.", reviewColumns) + extraColumns + "\nFROM submission_reviews r"
	if extraColumns != "" {
		query += "\nJOIN users u ON u.id = r.user_id"
	}

	var args []any
	where := ""
	and := func(cond string) {
		if where == "" {
			where = "\nWHERE " + cond
			return
		}
		where += " AND " + cond
	}

	if opts.UserID != nil {
		args = append(args, *opts.UserID)
		and(fmt.Sprintf("r.user_id = $%d", len(args)))
	}
	if len(opts.Statuses) > 0 {
		args = append(args, opts.Statuses)
		and(fmt.Sprintf("r.status = ANY($%d)", len(args)))
	}
	query += where

	if opts.OldestFirst {
		query += "\nORDER BY r.submitted_at ASC"
	} else {
		query += "\nORDER BY r.submitted_at DESC"
	}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	return query, args
}

const sumMachinePoints = `-- name: SumMachinePoints
SELECT COALESCE(SUM(machine_given_points), 0)
FROM submission_reviews
WHERE user_id = $1 AND status = $2
`

func (r *ReviewRepo) SumMachinePoints(ctx context.Context, userID uuid.UUID, status string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.DB.QueryRow(ctx, sumMachinePoints, userID, status).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

const resolveReview = `-- name: ResolveReview
UPDATE submission_reviews
SET status = $2,
	confirmed_weight = $3,
	calculated_points = $4,
	reviewer_note = $5,
	reviewed_at = $6
WHERE id = $1 AND status = $7
RETURNING ` + reviewColumns

// Resolve moves a PENDING review to a terminal status. The status guard in
// the WHERE clause enforces the one-way transition: rows that already left
// PENDING are never overwritten.
func (r *ReviewRepo) Resolve(ctx context.Context, params repository.ResolveReviewParams) (models.Review, error) {
	rows, _ := r.DB.Query(ctx, resolveReview,
		params.ID, params.Status, params.ConfirmedWeight, params.CalculatedPoints,
		params.ReviewerNote, params.ReviewedAt, models.ReviewStatusPending,
	)

	review, err := pgx.CollectOneRow(rows, rowToReview)

	switch {
	case err == nil:
		return review, nil
	case errors.Is(err, pgx.ErrNoRows):
		// No row updated: either missing or already resolved
		if _, getErr := r.GetReview(ctx, params.ID); getErr != nil {
			return review, getErr
		}
		return review, apperrors.ErrReviewAlreadyResolved
	default:
		return review, fmt.Errorf("db error: %w", err)
	}
}

const deleteResolvedBefore = `-- name: DeleteResolvedBefore
DELETE FROM submission_reviews
WHERE status <> $1 AND submitted_at < $2
`

func (r *ReviewRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteResolvedBefore, models.ReviewStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func rowToReview(row pgx.CollectableRow) (models.Review, error) {
	var rv models.Review
	err := row.Scan(
		&rv.ID, &rv.VendorRecordID, &rv.UserID, &rv.Phone, &rv.DeviceNo, &rv.WasteType,
		&rv.APIWeight, &rv.TheoreticalWeight, &rv.ConfirmedWeight, &rv.MachineGivenPoints,
		&rv.CalculatedPoints, &rv.RatePerKg, &rv.BinWeightSnapshot, &rv.PhotoURL,
		&rv.Status, &rv.Source, &rv.ReviewerNote, &rv.SubmittedAt, &rv.ReviewedAt,
	)
	return rv, err
}
