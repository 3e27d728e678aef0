package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending      = "PENDING"
	WithdrawalStatusApproved     = "APPROVED"
	WithdrawalStatusPaid         = "PAID"
	WithdrawalStatusRejected     = "REJECTED"
	WithdrawalStatusExternalSync = "EXTERNAL_SYNC"
)

// WithdrawnStatuses are the withdrawal states that count as money already
// taken out of the vendor wallet when reconstructing lifetime earnings.
var WithdrawnStatuses = []string{
	WithdrawalStatusApproved,
	WithdrawalStatusPaid,
	WithdrawalStatusExternalSync,
}

// Withdrawal is a user's claim against their point balance.
type Withdrawal struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Status    string
}

// WithdrawalWithUser carries user display fields joined for presentation.
type WithdrawalWithUser struct {
	Withdrawal

	UserNickname  string
	UserAvatarURL string
	UserPhone     string
}
