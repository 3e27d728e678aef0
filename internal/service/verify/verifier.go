// Package verify reconciles a user's internal ledger against the vendor
// wallet and settles pending submissions against the reconciled gap.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

// AutoVerifyNote marks reviews approved by the reconciliation engine.
const AutoVerifyNote = "Auto-Verified via Live Point Sync"

// settleTolerance absorbs floating-point drift between the vendor wallet and
// stored point values. A pending entry is approved while the remaining gap
// covers its points within this tolerance. Policy knob, not an accident.
var settleTolerance = decimal.NewFromFloat(0.01)

type accountAPI interface {
	AccountBalance(ctx context.Context, phone string) (decimal.Decimal, error)
}

type Verifier struct {
	store  repository.Storage
	api    accountAPI
	logger logger.Logger
	now    func() time.Time
}

func New(store repository.Storage, api accountAPI, l logger.Logger) *Verifier {
	return &Verifier{
		store:  store,
		api:    api,
		logger: l,
		now:    time.Now,
	}
}

// Report sums up one per-user verification pass.
type Report struct {
	Gap            decimal.Decimal
	RemainingGap   decimal.Decimal
	Approved       int
	ApprovedPoints decimal.Decimal
}

// VerifyUserSubmissions reconstructs the user's true lifetime earnings from
// the live wallet balance plus settled withdrawals, subtracts the sum already
// approved locally, and auto-approves pending reviews oldest-first while the
// remaining gap covers them. Settlement is strict FIFO: the first entry the
// gap cannot cover stops the walk, even if a smaller later entry would fit.
// Re-running with an unchanged gap approves nothing new.
func (v *Verifier) VerifyUserSubmissions(ctx context.Context, userID uuid.UUID, phone string) (Report, error) {
	var report Report

	liveBalance, err := v.api.AccountBalance(ctx, phone)
	if err != nil {
		return report, fmt.Errorf("fetch live balance for %s: %w", phone, err)
	}

	totalWithdrawn, err := v.store.Withdrawal().SumWithdrawn(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("sum withdrawals: %w", err)
	}

	localVerifiedSum, err := v.store.Review().SumMachinePoints(ctx, userID, models.ReviewStatusVerified)
	if err != nil {
		return report, fmt.Errorf("sum verified points: %w", err)
	}

	liveLifetimeEarnings := liveBalance.Add(totalWithdrawn)

	// Round to 2 places to absorb floating-point drift in vendor data
	gap := liveLifetimeEarnings.Sub(localVerifiedSum).Round(2)
	report.Gap = gap
	report.RemainingGap = gap

	v.logger.Info("Reconciled gap",
		"phone", phone,
		"live_balance", liveBalance,
		"total_withdrawn", totalWithdrawn,
		"local_verified", localVerifiedSum,
		"gap", gap,
	)

	pending, err := v.store.Review().ListReviews(ctx, repository.ListReviewsOpts{
		UserID:      &userID,
		Statuses:    []string{models.ReviewStatusPending},
		OldestFirst: true,
	})
	if err != nil {
		return report, fmt.Errorf("list pending reviews: %w", err)
	}
	if len(pending) == 0 {
		return report, nil
	}

	for _, review := range pending {
		points := review.MachineGivenPoints

		// Strict FIFO: stop at the first entry the gap cannot cover
		if gap.LessThan(points.Sub(settleTolerance)) {
			v.logger.Debug("Gap too small, stopping settlement",
				"review_id", review.ID, "points", points, "gap", gap)
			break
		}

		_, err := v.store.Review().Resolve(ctx, repository.ResolveReviewParams{
			ID:               review.ID,
			Status:           models.ReviewStatusVerified,
			ConfirmedWeight:  review.APIWeight,
			CalculatedPoints: points,
			ReviewerNote:     AutoVerifyNote,
			ReviewedAt:       v.now(),
		})
		if err != nil {
			// The gap stays reserved for this entry; a later run settles it
			v.logger.Error("Failed to auto-verify review", "review_id", review.ID, "error", err)
			continue
		}

		gap = gap.Sub(points)
		report.RemainingGap = gap
		report.Approved++
		report.ApprovedPoints = report.ApprovedPoints.Add(points)

		v.logger.Info("Auto-verified review",
			"review_id", review.ID,
			"vendor_record_id", review.VendorRecordID,
			"points", points,
			"remaining_gap", gap,
		)
	}

	return report, nil
}

// VerifyAll runs the reconciliation for every known user. Per-user failures
// are logged and do not stop the sweep; only the user listing itself is
// fatal.
func (v *Verifier) VerifyAll(ctx context.Context) error {
	users, err := v.store.User().ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	for _, user := range users {
		if _, err := v.VerifyUserSubmissions(ctx, user.ID, user.Phone); err != nil {
			v.logger.Error("Verification failed", "user_id", user.ID, "error", err)
		}
	}

	return nil
}
