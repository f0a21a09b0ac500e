package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a row in the capitalization event log.
type TransactionType string

const (
	TxStockIssuance       TransactionType = "TX_STOCK_ISSUANCE"
	TxStockCancellation   TransactionType = "TX_STOCK_CANCELLATION"
	TxStockTransfer       TransactionType = "TX_STOCK_TRANSFER"
	TxEquityCompIssuance  TransactionType = "TX_EQUITY_COMPENSATION_ISSUANCE"
	TxEquityCompExercise  TransactionType = "TX_EQUITY_COMPENSATION_EXERCISE"
	TxConvertibleIssuance TransactionType = "TX_CONVERTIBLE_ISSUANCE"
	TxWarrantIssuance     TransactionType = "TX_WARRANT_ISSUANCE"
	TxWarrantExercise     TransactionType = "TX_WARRANT_EXERCISE"
	TxWarrantCancellation TransactionType = "TX_WARRANT_CANCELLATION"

	TxIssuerAuthorizedSharesAdjustment     TransactionType = "TX_ISSUER_AUTHORIZED_SHARES_ADJUSTMENT"
	TxStockClassAuthorizedSharesAdjustment TransactionType = "TX_STOCK_CLASS_AUTHORIZED_SHARES_ADJUSTMENT"
	TxStockPlanPoolAdjustment              TransactionType = "TX_STOCK_PLAN_POOL_ADJUSTMENT"
)

// ConvertibleType classifies a convertible instrument.
type ConvertibleType string

const (
	ConvertibleSAFE  ConvertibleType = "SAFE"
	ConvertibleNote  ConvertibleType = "NOTE"
	ConvertibleOther ConvertibleType = "OTHER"
)

// InterestRate is one leg of a convertible note's interest schedule.
type InterestRate struct {
	Rate             decimal.Decimal `json:"rate"`
	AccrualStartDate string          `json:"accrual_start_date,omitempty"`
	AccrualEndDate   string          `json:"accrual_end_date,omitempty"`
}

// ConversionMechanism describes how a convertible or warrant turns into stock.
// Which fields are populated depends on Type.
type ConversionMechanism struct {
	Type               string           `json:"type"`
	ValuationCap       *decimal.Decimal `json:"conversion_valuation_cap,omitempty"`
	DiscountRate       *decimal.Decimal `json:"conversion_discount,omitempty"`
	ConversionTiming   string           `json:"conversion_timing,omitempty"`
	MFN                *bool            `json:"conversion_mfn,omitempty"`
	InterestRates      []InterestRate   `json:"interest_rates,omitempty"`
	DayCountConvention string           `json:"day_count_convention,omitempty"`
	InterestPayout     string           `json:"interest_payout,omitempty"`
	CompoundingType    string           `json:"compounding_type,omitempty"`
	ConvertsToQuantity *decimal.Decimal `json:"converts_to_quantity,omitempty"`
	ValuationAmount    *decimal.Decimal `json:"valuation_amount,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
	ExercisePrice      *decimal.Decimal `json:"exercise_price,omitempty"`
}

// ConversionRight is the older nesting shape: the mechanism sits one level
// deeper, next to the target stock class reference.
type ConversionRight struct {
	ConversionMechanism    *ConversionMechanism `json:"conversion_mechanism,omitempty"`
	ConvertsToStockClassID string               `json:"converts_to_stock_class_id,omitempty"`
}

// ConversionTrigger is one trigger attached to a convertible or warrant
// issuance. Historical data carries the mechanism either directly on the
// trigger or inside ConversionRight; both shapes mean the same thing.
type ConversionTrigger struct {
	Type                string               `json:"type"` // e.g. AUTOMATIC_ON_CONDITION, AUTOMATIC_ON_DATE, ELECTIVE_AT_WILL
	TriggerDate         *time.Time           `json:"trigger_date,omitempty"`
	ConversionRight     *ConversionRight     `json:"conversion_right,omitempty"`
	ConversionMechanism *ConversionMechanism `json:"conversion_mechanism,omitempty"`
}

// Transaction is a single row of the append-only capitalization event log.
// One flat struct covers every variant; Type decides which fields are
// meaningful. Rows are immutable once appended.
type Transaction struct {
	ID         string          `json:"id"`
	SecurityID string          `json:"security_id"`
	IssuerID   string          `json:"issuer_id"`
	Type       TransactionType `json:"type"`
	Date       string          `json:"date"` // YYYY-MM-DD
	CreatedAt  time.Time       `json:"created_at,omitempty"`

	StakeholderID     string `json:"stakeholder_id,omitempty"`
	StockClassID      string `json:"stock_class_id,omitempty"`
	StockPlanID       string `json:"stock_plan_id,omitempty"`
	SecurityIDRef     string `json:"security_id_ref,omitempty"` // cancellation/exercise/transfer back-reference
	FromStakeholderID string `json:"from_stakeholder_id,omitempty"`
	ToStakeholderID   string `json:"to_stakeholder_id,omitempty"`

	Quantity         decimal.Decimal `json:"quantity"`
	SharePrice       decimal.Decimal `json:"share_price"`
	ExercisePrice    decimal.Decimal `json:"exercise_price"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
	Currency         string          `json:"currency,omitempty"`

	IssuanceType         string          `json:"issuance_type,omitempty"`
	CompensationType     string          `json:"compensation_type,omitempty"` // e.g. OPTION_ISO, OPTION_NSO, RSU
	ConvertibleType      ConvertibleType `json:"convertible_type,omitempty"`
	Reason               string          `json:"reason,omitempty"`
	ResultingSecurityIDs []string        `json:"resulting_security_ids,omitempty"`
	VestingScheduleID    string          `json:"vesting_schedule_id,omitempty"`
	ExpirationDate       *time.Time      `json:"expiration_date,omitempty"`

	NewSharesAuthorized decimal.Decimal `json:"new_shares_authorized"`
	NewSharesReserved   decimal.Decimal `json:"new_shares_reserved"`

	ConversionTriggers []ConversionTrigger `json:"conversion_triggers,omitempty"`
	ExerciseTriggers   []ConversionTrigger `json:"exercise_triggers,omitempty"`

	HashID string `json:"hash_id,omitempty"` // dedup key, derived at ingestion
}

// IsIssuance reports whether the transaction introduces a new security id
// that later transactions may reference.
func (t Transaction) IsIssuance() bool {
	switch t.Type {
	case TxStockIssuance, TxEquityCompIssuance, TxConvertibleIssuance, TxWarrantIssuance:
		return true
	}
	return false
}

// ReferencesSecurity reports whether the transaction carries a back-reference
// to a previously issued security.
func (t Transaction) ReferencesSecurity() bool {
	switch t.Type {
	case TxStockCancellation, TxStockTransfer, TxEquityCompExercise, TxWarrantExercise, TxWarrantCancellation:
		return true
	}
	return false
}
