// Package waste maps raw machine labels and bin positions to canonical waste
// types and holds the theoretical-yield constants per type.
package waste

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TypePaper            = "Paper"
	TypeUCO              = "UCO"
	TypePlastikAluminium = "Plastik / Aluminium"
	TypeUnknown          = "Unknown"
)

// Label tokens checked in priority order: paper wins over oil wins over
// plastic when a label happens to contain several.
var (
	paperTokens   = []string{"paper", "kertas", "buku", "book"}
	ucoTokens     = []string{"oil", "minyak", "uco"}
	plastikTokens = []string{"plastic", "plastik", "bottle", "can", "aluminium", "botol"}
)

// Devices that only collect used cooking oil. Records from these machines are
// forced to UCO when the descriptive label is absent.
var ucoDeviceIDs = map[string]struct{}{
	"071582000007": {},
	"071582000009": {},
}

// Weight in kg needed to reach one reward unit, keyed by the first
// '/'-separated token of the lowercased type name.
var unitWeights = map[string]float64{
	"plastic": 0.04,
	"plastik": 0.04,
	"can":     0.015,
	"paper":   0.1,
	"uco":     1.0,
}

const fallbackUnitWeight = 0.05

// Classify maps a raw machine label to a canonical waste type.
// Unrecognized non-empty labels pass through unchanged so that new machine
// firmware labels stay visible to reviewers instead of collapsing to Unknown.
func Classify(rawLabel string) string {
	if rawLabel == "" {
		return TypeUnknown
	}
	n := strings.ToLower(rawLabel)

	for _, tok := range paperTokens {
		if strings.Contains(n, tok) {
			return TypePaper
		}
	}
	for _, tok := range ucoTokens {
		if strings.Contains(n, tok) {
			return TypeUCO
		}
	}
	for _, tok := range plastikTokens {
		if strings.Contains(n, tok) {
			return TypePlastikAluminium
		}
	}

	return rawLabel
}

// IsUCODevice reports whether the device belongs to the designated
// oil-collector set.
func IsUCODevice(deviceNo string) bool {
	_, ok := ucoDeviceIDs[deviceNo]
	return ok
}

// ClassifyRecord classifies a vendor record given its detail label and bin
// position. The label wins when present. Without a label the device override
// applies first, then the bin-position fallback ("2" is the paper slot, "1"
// the plastic one on mixed machines).
func ClassifyRecord(deviceNo, label, positionID string) string {
	if label != "" {
		return Classify(label)
	}

	if positionID != "" {
		switch {
		case IsUCODevice(deviceNo):
			return TypeUCO
		case positionID == "2":
			return TypePaper
		case positionID == "1":
			return TypePlastikAluminium
		}
	}

	return TypeUnknown
}

// UnitWeight returns the canonical per-unit weight for a waste type.
func UnitWeight(wasteType string) float64 {
	key := typeKey(wasteType)
	if u, ok := unitWeights[key]; ok {
		return u
	}
	return fallbackUnitWeight
}

// TheoreticalYield returns the portion of the reported weight that is a whole
// multiple of the type's unit weight, rounded down. Only full units count
// toward the reward calculation. Computed in decimal so an exact multiple
// yields itself instead of losing a unit to binary float division.
func TheoreticalYield(wasteType string, reportedWeight float64) float64 {
	if reportedWeight <= 0 {
		return 0
	}

	unit := decimal.NewFromFloat(UnitWeight(wasteType))
	weight := decimal.NewFromFloat(reportedWeight)

	return weight.Div(unit).Floor().Mul(unit).InexactFloat64()
}

// typeKey normalizes a waste type name to a constants-table key:
// the lowercased text before the first '/', "plastic" when empty.
func typeKey(wasteType string) string {
	s := strings.ToLower(wasteType)
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "plastic"
	}
	return s
}
