package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/handlers/middleware"
	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/service/dashboard"
	"github.com/ekosetor/rvmledger/internal/service/harvest"
	"github.com/ekosetor/rvmledger/internal/service/verify"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type harvestService interface {
	Run(ctx context.Context) (harvest.Report, error)
}

type verifyService interface {
	VerifyUserSubmissions(ctx context.Context, userID uuid.UUID, phone string) (verify.Report, error)
	VerifyAll(ctx context.Context) error
	VerifySubmission(ctx context.Context, reviewID uuid.UUID, finalWeight float64, rate decimal.Decimal) (models.Review, error)
	RejectSubmission(ctx context.Context, reviewID uuid.UUID, reason string) (models.Review, error)
}

type dashboardService interface {
	Stats(ctx context.Context) (dashboard.Stats, error)
	ListReviews(ctx context.Context) ([]models.ReviewWithUser, error)
	Cleanup(ctx context.Context, monthsToKeep int) (int64, error)
}

type userService interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

func NewRouter(
	harvester harvestService,
	verifier verifyService,
	dashboards dashboardService,
	users userService,
	l logger.Logger,
) http.Handler {
	api := http.NewServeMux()

	api.Handle("POST /harvest", handleHarvest(harvester, verifier, l))
	api.Handle("POST /verify", handleVerifyAll(verifier, l))
	api.Handle("POST /users/{id}/verify", handleVerifyUser(verifier, users, l))

	api.Handle("GET /reviews", handleListReviews(dashboards, l))
	api.Handle("POST /reviews/{id}/verify", handleVerifyReview(verifier, l))
	api.Handle("POST /reviews/{id}/reject", handleRejectReview(verifier, l))

	api.Handle("GET /dashboard/stats", handleDashboardStats(dashboards, l))
	api.Handle("POST /admin/cleanup", handleCleanup(dashboards, l))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return chain(root,
		middleware.LoggerMiddleware(l),
	)
}
