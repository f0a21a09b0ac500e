package models

import (
	"github.com/shopspring/decimal"
)

// ClassHolding is one stakeholder's position in a single cap-table category
// (a stock class, an options pool category, or a warrants category).
type ClassHolding struct {
	Type         string          `json:"type"` // "Stock", "Equity Compensation", "Warrants"
	ClassType    StockClassType  `json:"class_type,omitempty"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	AsConverted  decimal.Decimal `json:"as_converted"`
	FullyDiluted decimal.Decimal `json:"fully_diluted"`
	VotingPower  decimal.Decimal `json:"voting_power"`

	// Provenance, kept for audit display.
	IssuedDate         string          `json:"issued_date,omitempty"`
	PricePerShare      decimal.Decimal `json:"price_per_share"`
	CancellationDate   string          `json:"cancellation_date,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`

	// Shares a cancellation asked for beyond what was outstanding. The
	// excess is never applied; it is recorded here for audit.
	ClampedQuantity decimal.Decimal `json:"clamped_quantity"`
}

const (
	HoldingTypeStock      = "Stock"
	HoldingTypeEquityComp = "Equity Compensation"
	HoldingTypeWarrants   = "Warrants"
)

// VotingColumns are a holder's voting percentages against each denominator.
type VotingColumns struct {
	TotalAsConverted float64            `json:"total_as_converted"`
	AllCommon        float64            `json:"all_common"`
	AllPreferred     float64            `json:"all_preferred"`
	ByClass          map[string]float64 `json:"by_class,omitempty"`
}

// VotingState carries a holder's absolute votes and normalized columns.
type VotingState struct {
	Votes   decimal.Decimal `json:"votes"`
	Columns VotingColumns   `json:"columns"`
}

// ConvertiblePosition is a descriptive record of one convertible instrument.
// Convertibles never contribute to share counts until they convert.
type ConvertiblePosition struct {
	SecurityID             string           `json:"security_id"`
	Date                   string           `json:"date"`
	Amount                 decimal.Decimal  `json:"amount"`
	Currency               string           `json:"currency,omitempty"`
	ValuationCap           *decimal.Decimal `json:"valuation_cap,omitempty"`
	DiscountRate           *decimal.Decimal `json:"discount_rate,omitempty"`
	ConversionTiming       string           `json:"conversion_timing,omitempty"`
	MFN                    bool             `json:"mfn"`
	InterestSchedule       []InterestRate   `json:"interest_schedule,omitempty"`
	InterestCalculation    string           `json:"interest_calculation,omitempty"`
	MaturityDate           string           `json:"maturity_date,omitempty"`
	ConvertsToStockClassID string           `json:"converts_to_stock_class_id,omitempty"`
}

// ConvertibleBuckets groups a holder's convertibles by instrument family.
type ConvertibleBuckets struct {
	Safes []ConvertiblePosition `json:"safes,omitempty"`
	Notes []ConvertiblePosition `json:"notes,omitempty"`
	Other []ConvertiblePosition `json:"other,omitempty"`
}

// WarrantPosition is one warrant grant and its running exercise state.
type WarrantPosition struct {
	SecurityID      string           `json:"security_id"`
	Date            string           `json:"date"`
	ClassKey        string           `json:"class_key"`
	SharesIssuable  decimal.Decimal  `json:"shares_issuable"`
	SharesRemaining decimal.Decimal  `json:"shares_remaining"`
	SharesExercised decimal.Decimal  `json:"shares_exercised"`
	SharesCancelled decimal.Decimal  `json:"shares_cancelled"`
	PurchasePrice   decimal.Decimal  `json:"purchase_price"`
	ExercisePrice   *decimal.Decimal `json:"exercise_price,omitempty"`
	TriggerType     string           `json:"trigger_type,omitempty"`
	ValuationAmount *decimal.Decimal `json:"valuation_amount,omitempty"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount,omitempty"`
}

// GrantPosition is one equity compensation grant and its exercise state.
type GrantPosition struct {
	SecurityID        string          `json:"security_id"`
	Date              string          `json:"date"`
	ClassKey          string          `json:"class_key"`
	Quantity          decimal.Decimal `json:"quantity"`
	ExercisedQuantity decimal.Decimal `json:"exercised_quantity"`
	ExercisePrice     decimal.Decimal `json:"exercise_price"`
	CompensationType  string          `json:"compensation_type,omitempty"`
	StockPlanID       string          `json:"stock_plan_id,omitempty"`
	VestingScheduleID string          `json:"vesting_schedule_id,omitempty"`
	ExpirationDate    string          `json:"expiration_date,omitempty"`
}

// PlanBuckets splits a holder's grants into plan awards and non-plan awards.
type PlanBuckets struct {
	StockPlan []GrantPosition `json:"stock_plan,omitempty"`
	NonPlan   []GrantPosition `json:"non_plan,omitempty"`
}

// HolderPercentages are a holder's ownership percentages per metric,
// each in [0,100]. Zero when the corresponding global total is zero.
type HolderPercentages struct {
	Outstanding  float64 `json:"outstanding"`
	AsConverted  float64 `json:"as_converted"`
	FullyDiluted float64 `json:"fully_diluted"`
	Voting       float64 `json:"voting"`
}

// HolderState is the full derived position of one stakeholder. It is rebuilt
// from scratch on every replay and never persisted.
type HolderState struct {
	StakeholderID string                  `json:"stakeholder_id"`
	Name          string                  `json:"name"`
	Relationship  StakeholderRelationship `json:"relationship"`

	Outstanding  decimal.Decimal `json:"outstanding"`
	AsConverted  decimal.Decimal `json:"as_converted"`
	FullyDiluted decimal.Decimal `json:"fully_diluted"`

	ByClass map[string]*ClassHolding `json:"by_class"`
	Voting  VotingState              `json:"voting"`

	Convertibles ConvertibleBuckets `json:"convertibles"`
	Warrants     []WarrantPosition  `json:"warrants,omitempty"`
	Plans        PlanBuckets        `json:"plans"`

	Percentages HolderPercentages `json:"percentages"`
}

// CapTableTotals are the issuer-wide denominators produced by normalization.
type CapTableTotals struct {
	Outstanding  decimal.Decimal `json:"outstanding"`
	AsConverted  decimal.Decimal `json:"as_converted"`
	FullyDiluted decimal.Decimal `json:"fully_diluted"`
	VotingRights decimal.Decimal `json:"voting_rights"`
}

// VotingTotals partition total voting power.
type VotingTotals struct {
	Total     decimal.Decimal            `json:"total"`
	Common    decimal.Decimal            `json:"common"`
	Preferred decimal.Decimal            `json:"preferred"`
	ByClass   map[string]decimal.Decimal `json:"by_class,omitempty"`
}

// OptionsPoolSummary reports the equity plan pool position.
type OptionsPoolSummary struct {
	TotalAuthorized decimal.Decimal `json:"total_authorized"`
	TotalIssued     decimal.Decimal `json:"total_issued"`
	Unallocated     decimal.Decimal `json:"unallocated"`
}

// CapTableView is the normalized output of one replay. Pure data; the
// presentation layer owns formatting.
type CapTableView struct {
	Holders      map[string]*HolderState `json:"holders"`
	Totals       CapTableTotals          `json:"totals"`
	VotingTotals VotingTotals            `json:"voting_totals"`
	OptionsPool  OptionsPoolSummary      `json:"options_pool"`
}
