package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

type WithdrawalRepo struct {
	DB DBTX
}

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawals (id, user_id, amount, status)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, user_id, amount, status
`

func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, params repository.CreateWithdrawalParams) (models.Withdrawal, error) {
	status := params.Status
	if status == "" {
		status = models.WithdrawalStatusPending
	}

	rows, _ := r.DB.Query(ctx, createWithdrawal, uuid.New(), params.UserID, params.Amount, status)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)
	if err != nil {
		return withdrawal, fmt.Errorf("db error: %w", err)
	}

	return withdrawal, nil
}

const sumWithdrawn = `-- name: SumWithdrawn
SELECT COALESCE(SUM(amount), 0)
FROM withdrawals
WHERE user_id = $1 AND status = ANY($2)
`

// SumWithdrawn totals the user's money already taken out of the wallet.
// Only the settled states count, see models.WithdrawnStatuses.
func (r *WithdrawalRepo) SumWithdrawn(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.DB.QueryRow(ctx, sumWithdrawn, userID, models.WithdrawnStatuses).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

const sumNonRejected = `-- name: SumNonRejected
SELECT COALESCE(SUM(amount), 0)
FROM withdrawals
WHERE status <> $1
`

func (r *WithdrawalRepo) SumNonRejected(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.DB.QueryRow(ctx, sumNonRejected, models.WithdrawalStatusRejected).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

const countByStatus = `-- name: CountByStatus
SELECT COUNT(*) FROM withdrawals WHERE status = $1
`

func (r *WithdrawalRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, countByStatus, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

const listRecentWithUser = `-- name: ListRecentWithUser
SELECT w.id, w.created_at, w.user_id, w.amount, w.status,
	u.nickname, u.avatar_url, u.phone
FROM withdrawals w
JOIN users u ON u.id = w.user_id
ORDER BY w.created_at DESC
LIMIT $1
`

func (r *WithdrawalRepo) ListRecentWithUser(ctx context.Context, limit int) ([]models.WithdrawalWithUser, error) {
	rows, _ := r.DB.Query(ctx, listRecentWithUser, limit)
	withdrawals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WithdrawalWithUser, error) {
		var w models.WithdrawalWithUser
		err := row.Scan(&w.ID, &w.CreatedAt, &w.UserID, &w.Amount, &w.Status,
			&w.UserNickname, &w.UserAvatarURL, &w.UserPhone)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

func rowToWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(&w.ID, &w.CreatedAt, &w.UserID, &w.Amount, &w.Status)
	return w, err
}
