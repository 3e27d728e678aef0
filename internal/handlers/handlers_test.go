package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/machine"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
	"github.com/ekosetor/rvmledger/internal/service/dashboard"
	"github.com/ekosetor/rvmledger/internal/service/harvest"
	"github.com/ekosetor/rvmledger/internal/service/verify"
	"github.com/ekosetor/rvmledger/internal/testutil"
)

// vendorStub serves the three hardware API endpoints with canned data.
type vendorStub struct {
	recordsJSON string
	configJSON  string
	balances    map[string]string
}

func (v *vendorStub) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rubbish-log/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"data": [%s]}`, v.recordsJSON)
	})
	mux.HandleFunc("GET /api/machine/{deviceNo}/config", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"data": [%s]}`, v.configJSON)
	})
	mux.HandleFunc("GET /api/account/sync", func(w http.ResponseWriter, r *http.Request) {
		balance, ok := v.balances[r.URL.Query().Get("phone")]
		if !ok {
			balance = "0"
		}
		_, _ = fmt.Fprintf(w, `{"integral": %q}`, balance)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setup runs the full router against in-memory storage and a vendor stub.
func setup(t *testing.T, store *testutil.MemStorage, vendor *vendorStub) string {
	l := logger.NewNoOpLogger()

	client := machine.NewClient(vendor.server(t).URL, l)
	harvester := harvest.New(store, client, l)
	verifier := verify.New(store, client, l)
	dashboards := dashboard.NewService(store, l)

	srv := httptest.NewServer(NewRouter(harvester, verifier, dashboards, store, l))
	t.Cleanup(srv.Close)
	return srv.URL
}

func doJSON(t *testing.T, method, url, body string) (int, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(respBody)
}

func pendingReview(user models.User, vendorRecordID string, points int64) models.Review {
	return models.Review{
		VendorRecordID:     vendorRecordID,
		UserID:             user.ID,
		Phone:              user.Phone,
		DeviceNo:           "dev-1",
		WasteType:          "Paper",
		APIWeight:          0.55,
		TheoreticalWeight:  0.5,
		MachineGivenPoints: decimal.NewFromInt(points),
		RatePerKg:          decimal.NewFromInt(10),
		Status:             models.ReviewStatusPending,
		Source:             models.ReviewSourceFetch,
		SubmittedAt:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func Test_HarvestHandler(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStorage()
	user := store.AddUser("6281234567890")

	url := setup(t, store, &vendorStub{
		recordsJSON: `{
			"id": "rec-1", "deviceNo": "dev-1", "weight": 0.55,
			"integral": "5.5", "amount": "0",
			"createTime": "2024-05-01 10:30:00",
			"rubbishLogDetailsVOList": [{"rubbishName": "Kertas Bekas", "positionId": "2"}]
		}`,
		configJSON: `{"rubbishType": "2", "rubbishTypeName": "Paper", "integral": "10", "amount": "0"}`,
		balances:   map[string]string{},
	})

	code, body := doJSON(t, http.MethodPost, url+"/api/harvest", "")

	require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
	require.JSONEq(t, `
		{
			"users": 1,
			"seen": 1,
			"inserted": 1,
			"skipped": 0,
			"failed": 0
		}`, body)

	reviews, err := store.ListReviews(t.Context(), repository.ListReviewsOpts{})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "rec-1", reviews[0].VendorRecordID)
	require.Equal(t, user.ID, reviews[0].UserID)
	// zero wallet balance leaves the harvested entry pending
	require.Equal(t, models.ReviewStatusPending, reviews[0].Status)
}

func Test_VerifyHandlers(t *testing.T) {
	t.Parallel()

	t.Run("sweep returns no content", func(t *testing.T) {
		store := testutil.NewMemStorage()
		store.AddUser("6281")

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, _ := doJSON(t, http.MethodPost, url+"/api/verify", "")
		require.Equal(t, http.StatusNoContent, code)
	})

	t.Run("per-user verification settles against the wallet", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		store.AddReview(pendingReview(user, "rec-1", 5))

		url := setup(t, store, &vendorStub{
			balances: map[string]string{"6281234567890": "5"},
		})

		code, body := doJSON(t, http.MethodPost, url+"/api/users/"+user.ID.String()+"/verify", "")

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.JSONEq(t, `
			{
				"gap": 5,
				"remaining_gap": 0,
				"approved": 1,
				"approved_points": 5
			}`, body)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := testutil.NewMemStorage()
		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/users/a2180b3f-3a1f-49fb-b7e6-ce68e7f10bcb/verify", "")

		require.Equal(t, http.StatusNotFound, code)
		require.JSONEq(t, `
			{
				"error": "service_error",
				"message": "User not found"
			}`, body)
	})

	t.Run("malformed user id", func(t *testing.T) {
		store := testutil.NewMemStorage()
		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, _ := doJSON(t, http.MethodPost, url+"/api/users/not-a-uuid/verify", "")
		require.Equal(t, http.StatusBadRequest, code)
	})
}

func Test_ReviewHandlers(t *testing.T) {
	t.Parallel()

	t.Run("list includes user display fields", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		store.AddReview(pendingReview(user, "rec-1", 5))

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodGet, url+"/api/reviews", "")

		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, `"vendor_record_id":"rec-1"`)
		require.Contains(t, body, `"status":"PENDING"`)
	})

	t.Run("manual verify ok", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		review := store.AddReview(pendingReview(user, "rec-1", 5))

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/reviews/"+review.ID.String()+"/verify",
			`{"confirmed_weight": 2.5, "rate_per_kg": 4}`)

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.Contains(t, body, `"status":"VERIFIED"`)
		require.Contains(t, body, `"confirmed_weight":2.5`)
		require.Contains(t, body, `"calculated_points":10`)
	})

	t.Run("manual verify validation failure", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		review := store.AddReview(pendingReview(user, "rec-1", 5))

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/reviews/"+review.ID.String()+"/verify",
			`{"confirmed_weight": 0, "rate_per_kg": -1}`)

		require.Equal(t, http.StatusBadRequest, code)
		require.JSONEq(t, `
			{
				"error": "validation_failed",
				"message": "Request validation failed",
				"fields": {
					"confirmed_weight": "Value must be greater than 0",
					"rate_per_kg": "Value must be greater than 0"
				}
			}`, body)
	})

	t.Run("manual verify conflicts on resolved review", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		review := pendingReview(user, "rec-1", 5)
		review.Status = models.ReviewStatusRejected
		created := store.AddReview(review)

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/reviews/"+created.ID.String()+"/verify",
			`{"confirmed_weight": 2.5, "rate_per_kg": 4}`)

		require.Equal(t, http.StatusConflict, code)
		require.JSONEq(t, `
			{
				"error": "service_error",
				"message": "Review already resolved"
			}`, body)
	})

	t.Run("manual verify unknown review", func(t *testing.T) {
		store := testutil.NewMemStorage()
		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, _ := doJSON(t, http.MethodPost, url+"/api/reviews/a2180b3f-3a1f-49fb-b7e6-ce68e7f10bcb/verify",
			`{"confirmed_weight": 2.5, "rate_per_kg": 4}`)

		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run("reject ok", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		review := store.AddReview(pendingReview(user, "rec-1", 5))

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/reviews/"+review.ID.String()+"/reject",
			`{"reason": "photo does not match"}`)

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.Contains(t, body, `"status":"REJECTED"`)
		require.Contains(t, body, `"reviewer_note":"photo does not match"`)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		review := store.AddReview(pendingReview(user, "rec-1", 5))

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/reviews/"+review.ID.String()+"/reject", `{}`)

		require.Equal(t, http.StatusBadRequest, code)
		require.JSONEq(t, `
			{
				"error": "validation_failed",
				"message": "Request validation failed",
				"fields": {
					"reason": "This field is required"
				}
			}`, body)
	})
}

func Test_DashboardHandlers(t *testing.T) {
	t.Parallel()

	t.Run("stats", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		store.AddReview(pendingReview(user, "rec-1", 5))
		store.AddWithdrawal(user.ID, decimal.NewFromInt(25), models.WithdrawalStatusPending)
		store.AddWithdrawal(user.ID, decimal.NewFromInt(40), models.WithdrawalStatusRejected)

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodGet, url+"/api/dashboard/stats", "")

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.Contains(t, body, `"pending_withdrawals":1`)
		// rejected withdrawals do not count towards lifetime totals
		require.Contains(t, body, `"total_points":25`)
		require.Contains(t, body, `"vendor_record_id":"rec-1"`)
	})

	t.Run("cleanup deletes resolved submissions past retention", func(t *testing.T) {
		store := testutil.NewMemStorage()
		user := store.AddUser("6281234567890")
		stale := pendingReview(user, "rec-old", 5)
		stale.Status = models.ReviewStatusRejected
		stale.SubmittedAt = time.Now().AddDate(-1, 0, 0)
		store.AddReview(stale)

		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, body := doJSON(t, http.MethodPost, url+"/api/admin/cleanup", `{"months_to_keep": 6}`)

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"deleted": 1}`, body)
	})

	t.Run("cleanup validation", func(t *testing.T) {
		store := testutil.NewMemStorage()
		url := setup(t, store, &vendorStub{balances: map[string]string{}})

		code, _ := doJSON(t, http.MethodPost, url+"/api/admin/cleanup", `{}`)
		require.Equal(t, http.StatusBadRequest, code)
	})
}
