// Package machine is the client for the reverse-vending hardware API. It is
// an opaque collaborator: raw deposit records, per-device bin configuration
// and live wallet balances come from here and nothing is written back.
package machine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one raw deposit event as reported by a machine.
type Record struct {
	ID             string          `json:"id"`
	DeviceNo       string          `json:"deviceNo"`
	Weight         float64         `json:"weight"`
	Integral       decimal.Decimal `json:"integral"`
	Amount         decimal.Decimal `json:"amount"`
	ImgURL         string          `json:"imgUrl"`
	CreateTime     Time            `json:"createTime"`
	PositionWeight float64         `json:"positionWeight"`
	Details        []RecordDetail  `json:"rubbishLogDetailsVOList"`
}

// FirstDetail returns the leading detail entry, zero-valued when the
// machine sent none.
func (r *Record) FirstDetail() RecordDetail {
	if len(r.Details) == 0 {
		return RecordDetail{}
	}
	return r.Details[0]
}

type RecordDetail struct {
	RubbishName string `json:"rubbishName"`
	PositionID  string `json:"positionId"`
}

// Bin is one slot of a machine's configuration.
type Bin struct {
	RubbishType     string          `json:"rubbishType"`
	RubbishTypeName string          `json:"rubbishTypeName"`
	Integral        decimal.Decimal `json:"integral"`
	Amount          decimal.Decimal `json:"amount"`
}

// Rate returns the bin's effective per-kg rate: the integral (point) rate
// when positive, the monetary amount otherwise.
func (b *Bin) Rate() decimal.Decimal {
	if b.Integral.IsPositive() {
		return b.Integral
	}
	return b.Amount
}

// Account is the live wallet state for a phone number.
type Account struct {
	Integral decimal.Decimal `json:"integral"`
}

// Time handles the vendor's non-RFC3339 timestamp encoding.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unsupported time value %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format("2006-01-02 15:04:05") + `"`), nil
}
