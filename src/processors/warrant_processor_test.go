package processors

import (
	"testing"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedAmountWarrant(securityID, targetClassID string, count int64) models.Transaction {
	qty := decimal.NewFromInt(count)
	return models.Transaction{
		ID:            "tx-" + securityID,
		SecurityID:    securityID,
		Type:          models.TxWarrantIssuance,
		Date:          "2021-05-01",
		StakeholderID: "sh-investor",
		PurchasePrice: decimal.NewFromInt(5000),
		ExerciseTriggers: []models.ConversionTrigger{
			{
				Type: "ELECTIVE_AT_WILL",
				ConversionRight: &models.ConversionRight{
					ConvertsToStockClassID: targetClassID,
					ConversionMechanism: &models.ConversionMechanism{
						Type:               "FIXED_AMOUNT_CONVERSION",
						ConvertsToQuantity: &qty,
					},
				},
			},
		},
	}
}

func TestWarrantFixedAmountIssuance(t *testing.T) {
	view := replay(t, []models.Transaction{
		fixedAmountWarrant("sec-w1", "sc-common", 250),
	})

	h := view.Holders["sh-investor"]
	require.NotNil(t, h)
	assertDecimal(t, "0", h.Outstanding)
	assertDecimal(t, "250", h.FullyDiluted)

	ch := h.ByClass["Common Stock Warrants"]
	require.NotNil(t, ch)
	assert.Equal(t, models.HoldingTypeWarrants, ch.Type)
	assertDecimal(t, "250", ch.FullyDiluted)

	require.Len(t, h.Warrants, 1)
	assertDecimal(t, "250", h.Warrants[0].SharesIssuable)
	assertDecimal(t, "250", h.Warrants[0].SharesRemaining)
	assert.Equal(t, "FIXED_AMOUNT_CONVERSION", h.Warrants[0].TriggerType)
}

func TestWarrantFixedAmountWithoutQuantityIsNoop(t *testing.T) {
	view := replay(t, []models.Transaction{
		{
			ID:            "tx-w",
			SecurityID:    "sec-w",
			Type:          models.TxWarrantIssuance,
			Date:          "2021-05-01",
			StakeholderID: "sh-investor",
			// Quantity on the transaction is not a fallback for fixed amount.
			Quantity: decimal.NewFromInt(999),
			ExerciseTriggers: []models.ConversionTrigger{
				{
					ConversionMechanism: &models.ConversionMechanism{
						Type: "FIXED_AMOUNT_CONVERSION",
					},
				},
			},
		},
	})

	assert.Empty(t, view.Holders)
}

func TestWarrantValuationBasedFallsBackToQuantity(t *testing.T) {
	valuation := decimal.NewFromInt(8_000_000)
	view := replay(t, []models.Transaction{
		{
			ID:            "tx-w",
			SecurityID:    "sec-w",
			Type:          models.TxWarrantIssuance,
			Date:          "2021-05-01",
			StakeholderID: "sh-investor",
			Quantity:      decimal.NewFromInt(120),
			ExerciseTriggers: []models.ConversionTrigger{
				{
					ConversionMechanism: &models.ConversionMechanism{
						Type:            "VALUATION_BASED_CONVERSION",
						ValuationAmount: &valuation,
					},
				},
			},
		},
	})

	h := view.Holders["sh-investor"]
	require.NotNil(t, h)
	assertDecimal(t, "120", h.FullyDiluted)

	// No target class resolved, so the position lands in the generic bucket.
	ch := h.ByClass["Warrants"]
	require.NotNil(t, ch)
	require.Len(t, h.Warrants, 1)
	require.NotNil(t, h.Warrants[0].ValuationAmount)
	assertDecimal(t, "8000000", *h.Warrants[0].ValuationAmount)
}

func TestWarrantExerciseAndCancellationClamp(t *testing.T) {
	view := replay(t, []models.Transaction{
		fixedAmountWarrant("sec-w1", "sc-common", 250),
		{
			ID:            "tx-ex",
			Type:          models.TxWarrantExercise,
			Date:          "2021-06-01",
			SecurityIDRef: "sec-w1",
			Quantity:      decimal.NewFromInt(100),
		},
		{
			ID:            "tx-cancel",
			Type:          models.TxWarrantCancellation,
			Date:          "2021-07-01",
			SecurityIDRef: "sec-w1",
			Quantity:      decimal.NewFromInt(500),
			Reason:        "expired",
		},
	})

	h := view.Holders["sh-investor"]
	require.NotNil(t, h)
	require.Len(t, h.Warrants, 1)
	pos := h.Warrants[0]
	assertDecimal(t, "0", pos.SharesRemaining)
	assertDecimal(t, "100", pos.SharesExercised)
	assertDecimal(t, "150", pos.SharesCancelled) // clamped to what remained
	assertDecimal(t, "0", h.FullyDiluted)
	assert.False(t, h.FullyDiluted.IsNegative())

	ch := h.ByClass["Common Stock Warrants"]
	require.NotNil(t, ch)
	assert.Equal(t, "expired", ch.CancellationReason)
}

func TestWarrantWithoutClassHonorsClassificationMode(t *testing.T) {
	tx := models.Transaction{
		ID:            "tx-w",
		SecurityID:    "sec-w",
		Type:          models.TxWarrantIssuance,
		Date:          "2021-05-01",
		StakeholderID: "sh-investor",
		PurchasePrice: decimal.NewFromInt(25000),
		Currency:      "USD",
	}

	asWarrant := NewCapTableProcessor(ReplayOptions{WarrantClassification: ClassifyAsWarrant}).
		Process([]models.Transaction{tx}, testStakeholders(), testStockClasses(), testStockPlans())
	// No share count and warrant mode: nothing to account.
	assert.Empty(t, asWarrant.Holders)

	asConvertible := NewCapTableProcessor(ReplayOptions{WarrantClassification: ClassifyAsConvertible}).
		Process([]models.Transaction{tx}, testStakeholders(), testStockClasses(), testStockPlans())
	h := asConvertible.Holders["sh-investor"]
	require.NotNil(t, h)
	require.Len(t, h.Convertibles.Other, 1)
	assertDecimal(t, "25000", h.Convertibles.Other[0].Amount)
	assert.Equal(t, "USD", h.Convertibles.Other[0].Currency)
	assertDecimal(t, "0", h.FullyDiluted)
}

func TestParseWarrantClassification(t *testing.T) {
	mode, err := ParseWarrantClassification("")
	assert.NoError(t, err)
	assert.Equal(t, ClassifyAsWarrant, mode)

	mode, err = ParseWarrantClassification("convertible")
	assert.NoError(t, err)
	assert.Equal(t, ClassifyAsConvertible, mode)

	mode, err = ParseWarrantClassification("bogus")
	assert.Error(t, err)
	assert.Equal(t, ClassifyAsWarrant, mode)
}
