package processors

import (
	"testing"
	"time"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractConversionTermsOuterShape(t *testing.T) {
	cap := decimal.NewFromInt(5_000_000)
	discount := decimal.NewFromFloat(0.2)
	mfn := true

	terms := ExtractConversionTerms([]models.ConversionTrigger{
		{
			Type: "AUTOMATIC_ON_CONDITION",
			ConversionMechanism: &models.ConversionMechanism{
				Type:             "SAFE_CONVERSION",
				ValuationCap:     &cap,
				DiscountRate:     &discount,
				ConversionTiming: "PRE_MONEY",
				MFN:              &mfn,
			},
		},
	})

	require.NotNil(t, terms.ValuationCap)
	assertDecimal(t, "5000000", *terms.ValuationCap)
	require.NotNil(t, terms.DiscountRate)
	assertDecimal(t, "0.2", *terms.DiscountRate)
	assert.Equal(t, "PRE_MONEY", terms.ConversionTiming)
	assert.True(t, terms.MFN)
}

func TestExtractConversionTermsNestedShape(t *testing.T) {
	cap := decimal.NewFromInt(7_500_000)

	terms := ExtractConversionTerms([]models.ConversionTrigger{
		{
			Type: "AUTOMATIC_ON_CONDITION",
			ConversionRight: &models.ConversionRight{
				ConvertsToStockClassID: "sc-series-a",
				ConversionMechanism: &models.ConversionMechanism{
					Type:         "SAFE_CONVERSION",
					ValuationCap: &cap,
				},
			},
		},
	})

	require.NotNil(t, terms.ValuationCap)
	assertDecimal(t, "7500000", *terms.ValuationCap)
	assert.Equal(t, "sc-series-a", terms.ConvertsToStockClassID)
}

func TestExtractConversionTermsLastWriteWins(t *testing.T) {
	capOuter := decimal.NewFromInt(4_000_000)
	capNested := decimal.NewFromInt(6_000_000)
	capLater := decimal.NewFromInt(9_000_000)

	terms := ExtractConversionTerms([]models.ConversionTrigger{
		{
			// Within a single trigger the nested mechanism is merged after
			// the outer one.
			ConversionMechanism: &models.ConversionMechanism{
				Type:         "SAFE_CONVERSION",
				ValuationCap: &capOuter,
			},
			ConversionRight: &models.ConversionRight{
				ConversionMechanism: &models.ConversionMechanism{
					Type:         "SAFE_CONVERSION",
					ValuationCap: &capNested,
				},
			},
		},
		{
			ConversionMechanism: &models.ConversionMechanism{
				Type:         "SAFE_CONVERSION",
				ValuationCap: &capLater,
			},
		},
	})

	require.NotNil(t, terms.ValuationCap)
	assertDecimal(t, "9000000", *terms.ValuationCap)
}

func TestExtractConversionTermsNoteInterest(t *testing.T) {
	rate := decimal.NewFromFloat(0.06)

	terms := ExtractConversionTerms([]models.ConversionTrigger{
		{
			ConversionMechanism: &models.ConversionMechanism{
				Type: "CONVERTIBLE_NOTE_CONVERSION",
				InterestRates: []models.InterestRate{
					{Rate: rate, AccrualStartDate: "2021-01-01"},
				},
				DayCountConvention: "ACTUAL_365",
				InterestPayout:     "DEFERRED",
				CompoundingType:    "ANNUAL",
			},
		},
	})

	require.Len(t, terms.InterestSchedule, 1)
	assertDecimal(t, "0.06", terms.InterestSchedule[0].Rate)
	assert.Equal(t, "ACTUAL_365 / DEFERRED / ANNUAL", terms.InterestCalculation)
}

func TestExtractConversionTermsDiscountRequiresMatchingType(t *testing.T) {
	discount := decimal.NewFromFloat(0.15)

	// A note mechanism does not carry the discount field.
	terms := ExtractConversionTerms([]models.ConversionTrigger{
		{
			ConversionMechanism: &models.ConversionMechanism{
				Type:         "CONVERTIBLE_NOTE_CONVERSION",
				DiscountRate: &discount,
			},
		},
	})
	assert.Nil(t, terms.DiscountRate)

	terms = ExtractConversionTerms([]models.ConversionTrigger{
		{
			ConversionMechanism: &models.ConversionMechanism{
				Type:         "DISCOUNT_CONVERSION",
				DiscountRate: &discount,
			},
		},
	})
	require.NotNil(t, terms.DiscountRate)
	assertDecimal(t, "0.15", *terms.DiscountRate)
}

func TestExtractConversionTermsMaturityDate(t *testing.T) {
	maturity := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	terms := ExtractConversionTerms([]models.ConversionTrigger{
		{Type: "AUTOMATIC_ON_DATE", TriggerDate: &maturity},
	})

	require.NotNil(t, terms.MaturityDate)
	assert.Equal(t, "2024-06-30", terms.MaturityDate.Format("2006-01-02"))
}

func TestExtractConversionTermsEmptyTriggers(t *testing.T) {
	terms := ExtractConversionTerms(nil)
	assert.Nil(t, terms.ValuationCap)
	assert.Nil(t, terms.DiscountRate)
	assert.False(t, terms.MFN)
	assert.Empty(t, terms.InterestSchedule)
}

func TestConvertibleIssuanceRecordsPosition(t *testing.T) {
	cap := decimal.NewFromInt(5_000_000)
	maturity := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	view := replay(t, []models.Transaction{
		{
			ID:               "tx-safe",
			SecurityID:       "sec-safe",
			Type:             models.TxConvertibleIssuance,
			Date:             "2021-03-01",
			StakeholderID:    "sh-investor",
			ConvertibleType:  models.ConvertibleSAFE,
			InvestmentAmount: decimal.NewFromInt(100_000),
			Currency:         "USD",
			ConversionTriggers: []models.ConversionTrigger{
				{
					Type:        "AUTOMATIC_ON_DATE",
					TriggerDate: &maturity,
					ConversionMechanism: &models.ConversionMechanism{
						Type:         "SAFE_CONVERSION",
						ValuationCap: &cap,
					},
				},
			},
		},
		{
			ID:               "tx-note",
			SecurityID:       "sec-note",
			Type:             models.TxConvertibleIssuance,
			Date:             "2021-04-01",
			StakeholderID:    "sh-investor",
			ConvertibleType:  models.ConvertibleNote,
			InvestmentAmount: decimal.NewFromInt(50_000),
		},
	})

	h := view.Holders["sh-investor"]
	require.NotNil(t, h)
	// Convertibles never move share counts.
	assertDecimal(t, "0", h.Outstanding)
	assertDecimal(t, "0", h.FullyDiluted)

	require.Len(t, h.Convertibles.Safes, 1)
	safe := h.Convertibles.Safes[0]
	assertDecimal(t, "100000", safe.Amount)
	require.NotNil(t, safe.ValuationCap)
	assertDecimal(t, "5000000", *safe.ValuationCap)
	assert.Equal(t, "2025-01-01", safe.MaturityDate)

	require.Len(t, h.Convertibles.Notes, 1)
	assertDecimal(t, "50000", h.Convertibles.Notes[0].Amount)
}
