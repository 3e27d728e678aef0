// Package dashboard is the read-only fan-out of ledger queries for display.
// No business decisions happen here.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

const recentLimit = 5

type Service struct {
	store  repository.Storage
	logger logger.Logger
}

func NewService(store repository.Storage, l logger.Logger) *Service {
	return &Service{store: store, logger: l}
}

type Stats struct {
	PendingWithdrawals int64
	TotalPoints        decimal.Decimal
	TotalWeight        float64
	RecentWithdrawals  []models.WithdrawalWithUser
	RecentSubmissions  []models.ReviewWithUser
}

// Stats gathers the landing-page numbers: pending withdrawal count, the
// fleet-wide lifetime points (user aggregates plus everything already
// withdrawn), collected weight, and the latest activity lists.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	pendingCount, err := s.store.Withdrawal().CountByStatus(ctx, models.WithdrawalStatusPending)
	if err != nil {
		return stats, fmt.Errorf("count pending withdrawals: %w", err)
	}
	stats.PendingWithdrawals = pendingCount

	points, weight, err := s.store.User().AggregateTotals(ctx)
	if err != nil {
		return stats, fmt.Errorf("aggregate user totals: %w", err)
	}

	withdrawnSum, err := s.store.Withdrawal().SumNonRejected(ctx)
	if err != nil {
		return stats, fmt.Errorf("sum withdrawals: %w", err)
	}

	stats.TotalPoints = points.Add(withdrawnSum)
	stats.TotalWeight = weight

	stats.RecentWithdrawals, err = s.store.Withdrawal().ListRecentWithUser(ctx, recentLimit)
	if err != nil {
		return stats, fmt.Errorf("list recent withdrawals: %w", err)
	}

	stats.RecentSubmissions, err = s.store.Review().ListReviewsWithUser(ctx, repository.ListReviewsOpts{
		Limit: recentLimit,
	})
	if err != nil {
		return stats, fmt.Errorf("list recent submissions: %w", err)
	}

	return stats, nil
}

// ListReviews returns all reviews newest-first with user display fields.
func (s *Service) ListReviews(ctx context.Context) ([]models.ReviewWithUser, error) {
	return s.store.Review().ListReviewsWithUser(ctx, repository.ListReviewsOpts{})
}

// Cleanup deletes resolved submissions older than the retention window.
func (s *Service) Cleanup(ctx context.Context, monthsToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, -monthsToKeep, 0)

	deleted, err := s.store.Review().DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old submissions: %w", err)
	}

	s.logger.Info("Retention cleanup done", "months_kept", monthsToKeep, "deleted", deleted)
	return deleted, nil
}
