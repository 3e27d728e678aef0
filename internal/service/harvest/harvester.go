// Package harvest pulls raw deposit records from the vendor hardware API and
// turns the ones the ledger has not seen yet into PENDING submission reviews.
package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/machine"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
	"github.com/ekosetor/rvmledger/internal/waste"
)

// Vendor pagination window checked per user and run
const (
	defaultPage     = 1
	defaultPageSize = 10
)

type machineAPI interface {
	UserRecords(ctx context.Context, phone string, page, pageSize int) ([]machine.Record, error)
	MachineConfig(ctx context.Context, deviceNo string) ([]machine.Bin, error)
}

type Harvester struct {
	store    repository.Storage
	api      machineAPI
	logger   logger.Logger
	pageSize int
}

type Option func(*Harvester)

// WithPageSize overrides the vendor pagination window.
func WithPageSize(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.pageSize = n
		}
	}
}

func New(store repository.Storage, api machineAPI, l logger.Logger, opts ...Option) *Harvester {
	h := &Harvester{
		store:    store,
		api:      api,
		logger:   l,
		pageSize: defaultPageSize,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Report sums up one harvest run.
type Report struct {
	Users    int
	Seen     int
	Inserted int
	Skipped  int
	Failed   int
}

// Run walks every known user, pulls their recent vendor records and inserts
// a PENDING review for each record not yet in the ledger. Safe to call
// repeatedly: the vendor_record_id unique constraint keeps re-runs from
// duplicating rows. Per-record failures are logged and skipped; a vendor or
// store failure at the user level aborts the whole run.
func (h *Harvester) Run(ctx context.Context) (Report, error) {
	var report Report

	h.logger.Info("Starting harvest")

	users, err := h.store.User().ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}
	report.Users = len(users)

	// Bin configuration lives exactly as long as this run
	cache := newBinCache(h.api, h.logger)

	for _, user := range users {
		records, err := h.api.UserRecords(ctx, user.Phone, defaultPage, h.pageSize)
		if err != nil {
			return report, fmt.Errorf("fetch records for %s: %w", user.Phone, err)
		}

		for _, rec := range records {
			report.Seen++

			exists, err := h.store.Review().ExistsByVendorRecordID(ctx, rec.ID)
			if err != nil {
				return report, fmt.Errorf("dedup check for record %s: %w", rec.ID, err)
			}
			if exists {
				report.Skipped++
				continue
			}

			h.logger.Info("New vendor record", "record_id", rec.ID, "device_no", rec.DeviceNo)

			switch err := h.processRecord(ctx, cache, user, rec); {
			case err == nil:
				report.Inserted++
			case errors.Is(err, apperrors.ErrReviewAlreadyExists):
				// Lost the race to a concurrent run, the row is there either way
				report.Skipped++
			default:
				h.logger.Error("Failed to insert review", "record_id", rec.ID, "error", err)
				report.Failed++
			}
		}
	}

	h.logger.Info("Harvest finished",
		"users", report.Users,
		"seen", report.Seen,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	return report, nil
}

// processRecord derives the classification, rate and theoretical yield for
// one vendor record and inserts it as a PENDING review.
func (h *Harvester) processRecord(ctx context.Context, cache *binCache, user models.User, rec machine.Record) error {
	detail := rec.FirstDetail()

	bins := cache.resolve(ctx, rec.DeviceNo)

	wasteType := waste.ClassifyRecord(rec.DeviceNo, detail.RubbishName, detail.PositionID)
	rate := matchRate(bins, detail.PositionID, wasteType, rec)
	theoretical := waste.TheoreticalYield(wasteType, rec.Weight)

	review := models.Review{
		VendorRecordID:     rec.ID,
		UserID:             user.ID,
		Phone:              user.Phone,
		DeviceNo:           rec.DeviceNo,
		WasteType:          wasteType,
		APIWeight:          rec.Weight,
		TheoreticalWeight:  round3(theoretical),
		MachineGivenPoints: rec.Integral,
		RatePerKg:          rate.Round(4),
		BinWeightSnapshot:  rec.PositionWeight,
		PhotoURL:           rec.ImgURL,
		Status:             models.ReviewStatusPending,
		Source:             models.ReviewSourceFetch,
		SubmittedAt:        rec.CreateTime.Time,
	}

	_, err := h.store.Review().CreateReview(ctx, review)
	return err
}

func round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
