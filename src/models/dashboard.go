package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationKind says which signal produced a valuation estimate.
type ValuationKind string

const (
	ValuationStockPriced    ValuationKind = "STOCK_PRICED"
	ValuationConvertibleCap ValuationKind = "CONVERTIBLE_CAP"
)

// ValuationEstimate is the most recent implied valuation of the issuer.
type ValuationEstimate struct {
	Amount decimal.Decimal `json:"amount"`
	Kind   ValuationKind   `json:"kind"`
	AsOf   time.Time       `json:"as_of"`
}

// DashboardSummary holds issuer-level scalars for the dashboard. It is
// produced by a lighter fold than the full cap-table replay.
type DashboardSummary struct {
	TotalRaised             decimal.Decimal    `json:"total_raised"`
	LatestSharePrice        decimal.Decimal    `json:"latest_share_price"`
	Valuation               *ValuationEstimate `json:"valuation,omitempty"`
	OwnershipByRelationship map[string]float64 `json:"ownership_by_relationship,omitempty"`
}
