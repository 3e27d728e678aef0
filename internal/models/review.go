package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReviewStatusPending  = "PENDING"
	ReviewStatusVerified = "VERIFIED"
	ReviewStatusRejected = "REJECTED"
)

// How a review entered the ledger
const (
	ReviewSourceFetch   = "FETCH"
	ReviewSourceWebhook = "WEBHOOK"
)

// Review is one vendor-reported deposit event pending or resolved for point
// award. VendorRecordID is globally unique: at most one row per vendor event.
type Review struct {
	ID             uuid.UUID
	VendorRecordID string
	UserID         uuid.UUID
	Phone          string
	DeviceNo       string

	WasteType string

	// Measurements. APIWeight and MachineGivenPoints come from the vendor
	// record as is, the rest are derived at insert time or set on resolution.
	APIWeight          float64
	TheoreticalWeight  float64
	ConfirmedWeight    *float64
	MachineGivenPoints decimal.Decimal
	CalculatedPoints   *decimal.Decimal
	RatePerKg          decimal.Decimal
	BinWeightSnapshot  float64

	PhotoURL     string
	Status       string
	Source       string
	ReviewerNote string
	SubmittedAt  time.Time
	ReviewedAt   *time.Time
}

// Resolved reports whether the review left the PENDING state.
// The transition is one-way, resolved rows are never reopened.
func (r *Review) Resolved() bool {
	return r.Status != ReviewStatusPending
}

// ReviewWithUser carries user display fields joined for presentation.
type ReviewWithUser struct {
	Review

	UserNickname  string
	UserAvatarURL string
	UserPhone     string
}
