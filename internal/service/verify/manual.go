package verify

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

// Manual review operations. Single-row, single-update each; the repository's
// status guard keeps resolved rows from being overwritten.

// ManualVerifyNote marks reviews approved by a human reviewer. Every resolved
// review carries a note, whichever path resolved it.
const ManualVerifyNote = "Manually Verified"

// VerifySubmission approves one review with a reviewer-confirmed weight.
// Calculated points are finalWeight times the rate the reviewer settled on.
func (v *Verifier) VerifySubmission(ctx context.Context, reviewID uuid.UUID, finalWeight float64, rate decimal.Decimal) (models.Review, error) {
	points := decimal.NewFromFloat(finalWeight).Mul(rate)

	review, err := v.store.Review().Resolve(ctx, repository.ResolveReviewParams{
		ID:               reviewID,
		Status:           models.ReviewStatusVerified,
		ConfirmedWeight:  finalWeight,
		CalculatedPoints: points,
		ReviewerNote:     ManualVerifyNote,
		ReviewedAt:       v.now(),
	})
	if err != nil {
		v.logger.Error("Manual verify failed", "review_id", reviewID, "error", err)
		return review, err
	}

	v.logger.Info("Review verified manually", "review_id", reviewID, "points", points)
	return review, nil
}

// RejectSubmission rejects one review, zeroing its confirmed measurements.
func (v *Verifier) RejectSubmission(ctx context.Context, reviewID uuid.UUID, reason string) (models.Review, error) {
	review, err := v.store.Review().Resolve(ctx, repository.ResolveReviewParams{
		ID:               reviewID,
		Status:           models.ReviewStatusRejected,
		ConfirmedWeight:  0,
		CalculatedPoints: decimal.Zero,
		ReviewerNote:     reason,
		ReviewedAt:       v.now(),
	})
	if err != nil {
		v.logger.Error("Manual reject failed", "review_id", reviewID, "error", err)
		return review, err
	}

	v.logger.Info("Review rejected", "review_id", reviewID, "reason", reason)
	return review, nil
}
