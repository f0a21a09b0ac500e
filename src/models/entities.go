package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakeholderRelationship classifies the stakeholder's relationship to the issuer.
type StakeholderRelationship string

const (
	RelationshipFounder     StakeholderRelationship = "FOUNDER"
	RelationshipInvestor    StakeholderRelationship = "INVESTOR"
	RelationshipEmployee    StakeholderRelationship = "EMPLOYEE"
	RelationshipAdvisor     StakeholderRelationship = "ADVISOR"
	RelationshipBoardMember StakeholderRelationship = "BOARD_MEMBER"
	RelationshipOther       StakeholderRelationship = "OTHER"
)

// Stakeholder is a holder of securities issued by an issuer.
type Stakeholder struct {
	ID           string                  `json:"id"`
	IssuerID     string                  `json:"issuer_id,omitempty"`
	LegalName    string                  `json:"legal_name"`
	Relationship StakeholderRelationship `json:"relationship"`
	CreatedAt    time.Time               `json:"created_at,omitempty"`
}

// StockClassType distinguishes common from preferred stock.
type StockClassType string

const (
	StockClassCommon    StockClassType = "COMMON"
	StockClassPreferred StockClassType = "PREFERRED"
)

// ConversionRatio expresses how many common shares one preferred share converts into.
type ConversionRatio struct {
	Numerator   decimal.Decimal `json:"numerator"`
	Denominator decimal.Decimal `json:"denominator"`
}

// StockClassConversionRight describes a conversion right attached to a stock class.
// Only RATIO_CONVERSION rights affect as-converted accounting.
type StockClassConversionRight struct {
	Type                   string           `json:"type"` // e.g. RATIO_CONVERSION
	Ratio                  *ConversionRatio `json:"ratio,omitempty"`
	ConvertsToStockClassID string           `json:"converts_to_stock_class_id,omitempty"`
}

// StockClass is a class of stock an issuer may issue shares of.
type StockClass struct {
	ID               string                      `json:"id"`
	IssuerID         string                      `json:"issuer_id,omitempty"`
	Name             string                      `json:"name"`
	ClassType        StockClassType              `json:"class_type"`
	VotesPerShare    decimal.Decimal             `json:"votes_per_share"`
	SharesAuthorized decimal.Decimal             `json:"shares_authorized"`
	ConversionRights []StockClassConversionRight `json:"conversion_rights,omitempty"`
	CreatedAt        time.Time                   `json:"created_at,omitempty"`
}

// ConversionFactor returns the common-share-equivalent factor for one share of
// this class. PREFERRED classes with a RATIO_CONVERSION right convert at
// numerator/denominator; everything else converts 1:1.
func (sc StockClass) ConversionFactor() decimal.Decimal {
	if sc.ClassType != StockClassPreferred {
		return decimal.NewFromInt(1)
	}
	for _, right := range sc.ConversionRights {
		if right.Type != "RATIO_CONVERSION" || right.Ratio == nil {
			continue
		}
		if right.Ratio.Denominator.IsZero() {
			continue
		}
		return right.Ratio.Numerator.Div(right.Ratio.Denominator)
	}
	return decimal.NewFromInt(1)
}

// StockPlan is an equity compensation plan with a reserved share pool.
type StockPlan struct {
	ID                    string          `json:"id"`
	IssuerID              string          `json:"issuer_id,omitempty"`
	PlanName              string          `json:"plan_name"`
	InitialSharesReserved decimal.Decimal `json:"initial_shares_reserved"`
	StockClassIDs         []string        `json:"stock_class_ids,omitempty"`
	CreatedAt             time.Time       `json:"created_at,omitempty"`
}

// Issuer is the entity whose cap table is being maintained.
type Issuer struct {
	ID               string          `json:"id"`
	LegalName        string          `json:"legal_name"`
	SharesAuthorized decimal.Decimal `json:"shares_authorized"`
	APIKey           string          `json:"api_key,omitempty"`
	APISecretHash    string          `json:"-"`
	CreatedAt        time.Time       `json:"created_at,omitempty"`
}
