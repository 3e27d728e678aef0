package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/handlers/render"
	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/waste"
)

type reviewResponse struct {
	ID                 uuid.UUID  `json:"id"`
	VendorRecordID     string     `json:"vendor_record_id"`
	UserID             uuid.UUID  `json:"user_id"`
	Phone              string     `json:"phone"`
	DeviceNo           string     `json:"device_no"`
	WasteType          string     `json:"waste_type"`
	APIWeight          float64    `json:"api_weight"`
	TheoreticalWeight  float64    `json:"theoretical_weight"`
	ConfirmedWeight    *float64   `json:"confirmed_weight,omitempty"`
	MachineGivenPoints float64    `json:"machine_given_points"`
	CalculatedPoints   *float64   `json:"calculated_points,omitempty"`
	RatePerKg          float64    `json:"rate_per_kg"`
	BinWeightSnapshot  float64    `json:"bin_weight_snapshot"`
	PhotoBefore        string     `json:"photo_before,omitempty"`
	PhotoAfter         string     `json:"photo_after,omitempty"`
	Status             string     `json:"status"`
	Source             string     `json:"source"`
	ReviewerNote       string     `json:"reviewer_note,omitempty"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`

	UserNickname  string `json:"user_nickname,omitempty"`
	UserAvatarURL string `json:"user_avatar_url,omitempty"`
}

func toReviewResponse(r models.Review) reviewResponse {
	points, _ := r.MachineGivenPoints.Float64()
	rate, _ := r.RatePerKg.Float64()

	resp := reviewResponse{
		ID:                 r.ID,
		VendorRecordID:     r.VendorRecordID,
		UserID:             r.UserID,
		Phone:              r.Phone,
		DeviceNo:           r.DeviceNo,
		WasteType:          r.WasteType,
		APIWeight:          r.APIWeight,
		TheoreticalWeight:  r.TheoreticalWeight,
		ConfirmedWeight:    r.ConfirmedWeight,
		MachineGivenPoints: points,
		RatePerKg:          rate,
		BinWeightSnapshot:  r.BinWeightSnapshot,
		Status:             r.Status,
		Source:             r.Source,
		ReviewerNote:       r.ReviewerNote,
		SubmittedAt:        r.SubmittedAt,
		ReviewedAt:         r.ReviewedAt,
	}

	resp.PhotoBefore, resp.PhotoAfter = waste.EvidencePhotos(r.PhotoURL)

	if r.CalculatedPoints != nil {
		calc, _ := r.CalculatedPoints.Float64()
		resp.CalculatedPoints = &calc
	}

	return resp
}

func handleListReviews(dashboards dashboardService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviews, err := dashboards.ListReviews(r.Context())
		if err != nil {
			l.Error("Failed to list reviews", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]reviewResponse, 0, len(reviews))
		for _, rv := range reviews {
			resp := toReviewResponse(rv.Review)
			resp.UserNickname = rv.UserNickname
			resp.UserAvatarURL = rv.UserAvatarURL
			response = append(response, resp)
		}

		render.JSON(w, response)
	})
}

func handleVerifyReview(verifier verifyService, l logger.Logger) http.Handler {
	type request struct {
		ConfirmedWeight float64 `json:"confirmed_weight" validate:"gt=0"`
		RatePerKg       float64 `json:"rate_per_kg" validate:"gt=0"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviewID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid review id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		review, err := verifier.VerifySubmission(r.Context(), reviewID, req.ConfirmedWeight, decimal.NewFromFloat(req.RatePerKg))

		switch {
		case err == nil:
			render.JSON(w, toReviewResponse(review))
		case errors.Is(err, apperrors.ErrReviewNotFound):
			render.ServiceError(w, "Review not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrReviewAlreadyResolved):
			render.ServiceError(w, "Review already resolved", http.StatusConflict)
		default:
			l.Error("Failed to verify review", "review_id", reviewID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRejectReview(verifier verifyService, l logger.Logger) http.Handler {
	type request struct {
		Reason string `json:"reason" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviewID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid review id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		review, err := verifier.RejectSubmission(r.Context(), reviewID, req.Reason)

		switch {
		case err == nil:
			render.JSON(w, toReviewResponse(review))
		case errors.Is(err, apperrors.ErrReviewNotFound):
			render.ServiceError(w, "Review not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrReviewAlreadyResolved):
			render.ServiceError(w, "Review already resolved", http.StatusConflict)
		default:
			l.Error("Failed to reject review", "review_id", reviewID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
