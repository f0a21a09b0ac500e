package processors

import (
	"github.com/opencaptable/captable/backend/src/models"
)

// convertibleProcessorImpl implements the ConvertibleProcessor interface.
type convertibleProcessorImpl struct{}

// NewConvertibleProcessor creates a new instance of ConvertibleProcessor.
func NewConvertibleProcessor() ConvertibleProcessor {
	return &convertibleProcessorImpl{}
}

// Process records a convertible issuance on the holder. Convertibles carry
// no share count until conversion, so outstanding, as-converted, fully
// diluted, and voting are all untouched.
func (p *convertibleProcessorImpl) Process(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	if tx.Type != models.TxConvertibleIssuance {
		return
	}
	if _, ok := res.Stakeholder(tx.StakeholderID); !ok {
		return
	}

	terms := ExtractConversionTerms(tx.ConversionTriggers)
	pos := convertiblePositionFromTerms(tx, terms)

	h := state.holder(tx.StakeholderID, res)
	appendConvertible(&h.Convertibles, tx.ConvertibleType, pos)
}

func convertiblePositionFromTerms(tx models.Transaction, terms ConversionTerms) models.ConvertiblePosition {
	pos := models.ConvertiblePosition{
		SecurityID:             tx.SecurityID,
		Date:                   tx.Date,
		Amount:                 tx.InvestmentAmount,
		Currency:               tx.Currency,
		ValuationCap:           terms.ValuationCap,
		DiscountRate:           terms.DiscountRate,
		ConversionTiming:       terms.ConversionTiming,
		MFN:                    terms.MFN,
		InterestSchedule:       terms.InterestSchedule,
		InterestCalculation:    terms.InterestCalculation,
		ConvertsToStockClassID: terms.ConvertsToStockClassID,
	}
	if terms.MaturityDate != nil {
		pos.MaturityDate = terms.MaturityDate.Format("2006-01-02")
	}
	return pos
}

func appendConvertible(buckets *models.ConvertibleBuckets, kind models.ConvertibleType, pos models.ConvertiblePosition) {
	switch kind {
	case models.ConvertibleSAFE:
		buckets.Safes = append(buckets.Safes, pos)
	case models.ConvertibleNote:
		buckets.Notes = append(buckets.Notes, pos)
	default:
		buckets.Other = append(buckets.Other, pos)
	}
}
