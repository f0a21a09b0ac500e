package processors

import (
	"strings"
	"time"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// ConversionTerms is the flat, normalized view of a convertible's trigger
// list. The trigger data comes in two historical nesting shapes (mechanism
// directly on the trigger, or inside conversion_right); this record is
// produced once per transaction so nothing downstream branches on shape.
type ConversionTerms struct {
	ValuationCap           *decimal.Decimal
	DiscountRate           *decimal.Decimal
	ConversionTiming       string
	MFN                    bool
	InterestSchedule       []models.InterestRate
	InterestCalculation    string
	MaturityDate           *time.Time
	ConvertsToStockClassID string
}

// WarrantTerms is the flat view of a warrant's exercise triggers.
type WarrantTerms struct {
	TriggerType            string
	ShareCount             *decimal.Decimal
	ValuationAmount        *decimal.Decimal
	DiscountAmount         *decimal.Decimal
	ExercisePrice          *decimal.Decimal
	ConvertsToStockClassID string
}

// mechanisms returns every mechanism attached to the trigger, outer shape
// first, so that merging later entries implements last-write-wins.
func triggerMechanisms(t models.ConversionTrigger) []*models.ConversionMechanism {
	var out []*models.ConversionMechanism
	if t.ConversionMechanism != nil {
		out = append(out, t.ConversionMechanism)
	}
	if t.ConversionRight != nil && t.ConversionRight.ConversionMechanism != nil {
		out = append(out, t.ConversionRight.ConversionMechanism)
	}
	return out
}

// ExtractConversionTerms scans every trigger and merges whichever fields are
// present. Later triggers overwrite earlier ones for the same field.
// Missing or partially populated data yields zero defaults, never an error.
func ExtractConversionTerms(triggers []models.ConversionTrigger) ConversionTerms {
	var terms ConversionTerms
	for _, trig := range triggers {
		if trig.Type == "AUTOMATIC_ON_DATE" && trig.TriggerDate != nil {
			d := *trig.TriggerDate
			terms.MaturityDate = &d
		}
		if trig.ConversionRight != nil && trig.ConversionRight.ConvertsToStockClassID != "" {
			terms.ConvertsToStockClassID = trig.ConversionRight.ConvertsToStockClassID
		}
		for _, mech := range triggerMechanisms(trig) {
			mergeMechanism(&terms, mech)
		}
	}
	return terms
}

func mergeMechanism(terms *ConversionTerms, mech *models.ConversionMechanism) {
	if mech.ValuationCap != nil {
		terms.ValuationCap = mech.ValuationCap
	}
	if mech.ConversionTiming != "" {
		terms.ConversionTiming = mech.ConversionTiming
	}
	if mech.MFN != nil {
		terms.MFN = *mech.MFN
	}

	switch mech.Type {
	case "SAFE_CONVERSION", "DISCOUNT_CONVERSION":
		if mech.DiscountRate != nil {
			terms.DiscountRate = mech.DiscountRate
		}
	case "CONVERTIBLE_NOTE_CONVERSION":
		if len(mech.InterestRates) > 0 {
			terms.InterestSchedule = mech.InterestRates
		}
		if desc := describeInterestCalculation(mech); desc != "" {
			terms.InterestCalculation = desc
		}
	}
}

// describeInterestCalculation joins the note's day-count, payout, and
// compounding descriptors into one human-readable string.
func describeInterestCalculation(mech *models.ConversionMechanism) string {
	var parts []string
	if mech.DayCountConvention != "" {
		parts = append(parts, mech.DayCountConvention)
	}
	if mech.InterestPayout != "" {
		parts = append(parts, mech.InterestPayout)
	}
	if mech.CompoundingType != "" {
		parts = append(parts, mech.CompoundingType)
	}
	return strings.Join(parts, " / ")
}

// ExtractWarrantTerms resolves how many shares a warrant is exercisable for.
// FIXED_AMOUNT_CONVERSION requires an explicit count; the other mechanism
// types fall back to the transaction's own quantity field when positive.
func ExtractWarrantTerms(tx models.Transaction) WarrantTerms {
	var terms WarrantTerms
	for _, trig := range tx.ExerciseTriggers {
		if trig.ConversionRight != nil && trig.ConversionRight.ConvertsToStockClassID != "" {
			terms.ConvertsToStockClassID = trig.ConversionRight.ConvertsToStockClassID
		}
		for _, mech := range triggerMechanisms(trig) {
			if mech.ExercisePrice != nil {
				terms.ExercisePrice = mech.ExercisePrice
			}
			switch mech.Type {
			case "FIXED_AMOUNT_CONVERSION":
				terms.TriggerType = mech.Type
				if mech.ConvertsToQuantity != nil {
					terms.ShareCount = mech.ConvertsToQuantity
				}
			case "VALUATION_BASED_CONVERSION":
				terms.TriggerType = mech.Type
				if mech.ValuationAmount != nil {
					terms.ValuationAmount = mech.ValuationAmount
				}
				if terms.ShareCount == nil && tx.Quantity.IsPositive() {
					q := tx.Quantity
					terms.ShareCount = &q
				}
			case "PPS_BASED_CONVERSION":
				terms.TriggerType = mech.Type
				if mech.DiscountAmount != nil {
					terms.DiscountAmount = mech.DiscountAmount
				}
				if terms.ShareCount == nil && tx.Quantity.IsPositive() {
					q := tx.Quantity
					terms.ShareCount = &q
				}
			}
		}
	}
	return terms
}
