package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, phone, nickname, avatar_url)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, phone, nickname, avatar_url, lifetime_points, total_weight
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Phone, params.Nickname, params.AvatarURL)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, phone, nickname, avatar_url, lifetime_points, total_weight
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, phone, nickname, avatar_url, lifetime_points, total_weight
FROM users
ORDER BY created_at
`

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

const aggregateTotals = `-- name: AggregateTotals
SELECT COALESCE(SUM(lifetime_points), 0), COALESCE(SUM(total_weight), 0)
FROM users
`

func (r *UserRepo) AggregateTotals(ctx context.Context) (decimal.Decimal, float64, error) {
	var points decimal.Decimal
	var weight float64

	err := r.DB.QueryRow(ctx, aggregateTotals).Scan(&points, &weight)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("db error: %w", err)
	}

	return points, weight, nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Phone, &u.Nickname, &u.AvatarURL, &u.LifetimePoints, &u.TotalWeight)
	return u, err
}
