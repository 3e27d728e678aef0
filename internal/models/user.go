package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an internal account correlated with the vendor wallet by phone.
// LifetimePoints and TotalWeight are denormalized display aggregates; the
// authoritative state lives in the vendor wallet and the submission ledger.
type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Phone          string
	Nickname       string
	AvatarURL      string
	LifetimePoints decimal.Decimal
	TotalWeight    float64
}
