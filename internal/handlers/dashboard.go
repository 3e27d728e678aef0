package handlers

import (
	"net/http"
	"time"

	"github.com/ekosetor/rvmledger/internal/handlers/render"
	"github.com/ekosetor/rvmledger/internal/logger"
)

func handleDashboardStats(dashboards dashboardService, l logger.Logger) http.Handler {
	type withdrawalItem struct {
		ID            string    `json:"id"`
		Amount        float64   `json:"amount"`
		Status        string    `json:"status"`
		CreatedAt     time.Time `json:"created_at"`
		UserNickname  string    `json:"user_nickname"`
		UserAvatarURL string    `json:"user_avatar_url,omitempty"`
		UserPhone     string    `json:"user_phone"`
	}

	type response struct {
		PendingWithdrawals int64            `json:"pending_withdrawals"`
		TotalPoints        float64          `json:"total_points"`
		TotalWeight        float64          `json:"total_weight"`
		RecentWithdrawals  []withdrawalItem `json:"recent_withdrawals"`
		RecentSubmissions  []reviewResponse `json:"recent_submissions"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := dashboards.Stats(r.Context())
		if err != nil {
			l.Error("Failed to gather dashboard stats", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		totalPoints, _ := stats.TotalPoints.Float64()

		resp := response{
			PendingWithdrawals: stats.PendingWithdrawals,
			TotalPoints:        totalPoints,
			TotalWeight:        stats.TotalWeight,
			RecentWithdrawals:  make([]withdrawalItem, 0, len(stats.RecentWithdrawals)),
			RecentSubmissions:  make([]reviewResponse, 0, len(stats.RecentSubmissions)),
		}

		for _, wd := range stats.RecentWithdrawals {
			amount, _ := wd.Amount.Float64()
			resp.RecentWithdrawals = append(resp.RecentWithdrawals, withdrawalItem{
				ID:            wd.ID.String(),
				Amount:        amount,
				Status:        wd.Status,
				CreatedAt:     wd.CreatedAt,
				UserNickname:  wd.UserNickname,
				UserAvatarURL: wd.UserAvatarURL,
				UserPhone:     wd.UserPhone,
			})
		}

		for _, rv := range stats.RecentSubmissions {
			item := toReviewResponse(rv.Review)
			item.UserNickname = rv.UserNickname
			item.UserAvatarURL = rv.UserAvatarURL
			resp.RecentSubmissions = append(resp.RecentSubmissions, item)
		}

		render.JSON(w, resp)
	})
}

func handleCleanup(dashboards dashboardService, l logger.Logger) http.Handler {
	type request struct {
		MonthsToKeep int `json:"months_to_keep" validate:"required,min=1"`
	}

	type response struct {
		Deleted int64 `json:"deleted"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		deleted, err := dashboards.Cleanup(r.Context(), req.MonthsToKeep)
		if err != nil {
			l.Error("Cleanup failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Deleted: deleted})
	})
}
