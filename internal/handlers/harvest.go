package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/handlers/render"
	"github.com/ekosetor/rvmledger/internal/logger"
)

// handleHarvest triggers one harvest run followed by a verification sweep,
// the manual "fetch and verify" button of the review UI.
func handleHarvest(harvester harvestService, verifier verifyService, l logger.Logger) http.Handler {
	type response struct {
		Users    int `json:"users"`
		Seen     int `json:"seen"`
		Inserted int `json:"inserted"`
		Skipped  int `json:"skipped"`
		Failed   int `json:"failed"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, err := harvester.Run(r.Context())
		if err != nil {
			l.Error("Harvest run failed", "error", err)
			render.ServiceError(w, "Harvest failed", http.StatusBadGateway)
			return
		}

		if err := verifier.VerifyAll(r.Context()); err != nil {
			l.Error("Verification sweep failed", "error", err)
			render.ServiceError(w, "Verification failed", http.StatusBadGateway)
			return
		}

		render.JSON(w, response{
			Users:    report.Users,
			Seen:     report.Seen,
			Inserted: report.Inserted,
			Skipped:  report.Skipped,
			Failed:   report.Failed,
		})
	})
}

func handleVerifyAll(verifier verifyService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := verifier.VerifyAll(r.Context()); err != nil {
			l.Error("Verification sweep failed", "error", err)
			render.ServiceError(w, "Verification failed", http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleVerifyUser(verifier verifyService, users userService, l logger.Logger) http.Handler {
	type response struct {
		Gap            float64 `json:"gap"`
		RemainingGap   float64 `json:"remaining_gap"`
		Approved       int     `json:"approved"`
		ApprovedPoints float64 `json:"approved_points"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		user, err := users.GetUserByID(r.Context(), userID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
			return
		default:
			l.Error("Failed to get user", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		report, err := verifier.VerifyUserSubmissions(r.Context(), user.ID, user.Phone)
		if err != nil {
			l.Error("Verification failed", "user_id", userID, "error", err)
			render.ServiceError(w, "Verification failed", http.StatusBadGateway)
			return
		}

		gap, _ := report.Gap.Float64()
		remaining, _ := report.RemainingGap.Float64()
		points, _ := report.ApprovedPoints.Float64()
		render.JSON(w, response{
			Gap:            gap,
			RemainingGap:   remaining,
			Approved:       report.Approved,
			ApprovedPoints: points,
		})
	})
}
