package harvest

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/machine"
)

// binCache memoizes per-device bin configuration for the duration of one
// harvest run. It is owned by the run and thrown away with it, so stale
// vendor config never leaks into the next invocation.
type binCache struct {
	api    binAPI
	logger logger.Logger
	bins   map[string][]machine.Bin
}

type binAPI interface {
	MachineConfig(ctx context.Context, deviceNo string) ([]machine.Bin, error)
}

func newBinCache(api binAPI, l logger.Logger) *binCache {
	return &binCache{
		api:    api,
		logger: l,
		bins:   make(map[string][]machine.Bin),
	}
}

// resolve returns the device's bins, fetching them on first use. A fetch
// failure resolves to an empty list and is remembered, so one broken device
// costs a single vendor call per run.
func (c *binCache) resolve(ctx context.Context, deviceNo string) []machine.Bin {
	if bins, ok := c.bins[deviceNo]; ok {
		return bins
	}

	bins, err := c.api.MachineConfig(ctx, deviceNo)
	if err != nil {
		c.logger.Warn("Failed to fetch machine config", "device_no", deviceNo, "error", err)
		bins = nil
	}

	c.bins[deviceNo] = bins
	return bins
}

// matchRate resolves the effective per-kg point rate for a record.
// Tie-break order: exact bin-type vs position-id match first, then
// case-insensitive substring of the waste type in a bin's type name. When no
// bin matches, the record's own totals give the rate (total value divided by
// weight, zero for weightless records).
func matchRate(bins []machine.Bin, positionID, wasteType string, rec machine.Record) decimal.Decimal {
	if positionID != "" {
		for _, bin := range bins {
			if bin.RubbishType == positionID {
				return bin.Rate()
			}
		}
	}

	needle := strings.ToLower(wasteType)
	for _, bin := range bins {
		if strings.Contains(strings.ToLower(bin.RubbishTypeName), needle) {
			return bin.Rate()
		}
	}

	if rec.Weight <= 0 {
		return decimal.Zero
	}

	totalValue := rec.Integral
	if totalValue.IsZero() {
		totalValue = rec.Amount
	}

	return totalValue.Div(decimal.NewFromFloat(rec.Weight))
}
