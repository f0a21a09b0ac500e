package processors

import (
	"testing"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionGrant(securityID string, qty int64) models.Transaction {
	return models.Transaction{
		ID:               "tx-" + securityID,
		SecurityID:       securityID,
		Type:             models.TxEquityCompIssuance,
		Date:             "2021-01-01",
		StakeholderID:    "sh-employee",
		StockPlanID:      "sp-2020",
		CompensationType: "OPTION_ISO",
		Quantity:         decimal.NewFromInt(qty),
		ExercisePrice:    decimal.NewFromInt(1),
	}
}

func TestEquityGrantIsFullyDilutedOnly(t *testing.T) {
	view := replay(t, []models.Transaction{optionGrant("sec-grant", 500)})

	h := view.Holders["sh-employee"]
	require.NotNil(t, h)
	assertDecimal(t, "0", h.Outstanding)
	assertDecimal(t, "0", h.AsConverted)
	assertDecimal(t, "500", h.FullyDiluted)
	assertDecimal(t, "0", h.Voting.Votes)

	require.Len(t, h.Plans.StockPlan, 1)
	assertDecimal(t, "500", h.Plans.StockPlan[0].Quantity)
	assert.Equal(t, "OPTION_ISO", h.Plans.StockPlan[0].CompensationType)
}

func TestEquityExerciseMovesSharesToStock(t *testing.T) {
	view := replay(t, []models.Transaction{
		optionGrant("sec-grant", 500),
		{
			ID:            "tx-exercise",
			Type:          models.TxEquityCompExercise,
			Date:          "2022-01-01",
			SecurityIDRef: "sec-grant",
			Quantity:      decimal.NewFromInt(200),
		},
		// The exercise results in a separate stock issuance.
		stockIssuance("sec-shares", "sh-employee", "sc-common", "2022-01-01", 200, 1),
	})

	h := view.Holders["sh-employee"]
	require.NotNil(t, h)
	assertDecimal(t, "200", h.Outstanding)
	assertDecimal(t, "500", h.FullyDiluted) // 300 unexercised options + 200 shares

	require.Len(t, h.Plans.StockPlan, 1)
	assertDecimal(t, "200", h.Plans.StockPlan[0].ExercisedQuantity)

	grantHolding := h.ByClass["Common Stock Options"]
	require.NotNil(t, grantHolding)
	assertDecimal(t, "300", grantHolding.FullyDiluted)
}

func TestEquityExerciseFloorsAtZero(t *testing.T) {
	view := replay(t, []models.Transaction{
		optionGrant("sec-grant", 100),
		{
			ID:            "tx-exercise",
			Type:          models.TxEquityCompExercise,
			Date:          "2022-01-01",
			SecurityIDRef: "sec-grant",
			Quantity:      decimal.NewFromInt(400),
		},
	})

	h := view.Holders["sh-employee"]
	require.NotNil(t, h)
	assert.False(t, h.FullyDiluted.IsNegative())
	assertDecimal(t, "0", h.FullyDiluted)
	// The position still records what was claimed.
	assertDecimal(t, "400", h.Plans.StockPlan[0].ExercisedQuantity)
}

func TestEquityExerciseUnknownGrantIsNoop(t *testing.T) {
	view := replay(t, []models.Transaction{
		{
			ID:            "tx-exercise",
			Type:          models.TxEquityCompExercise,
			Date:          "2022-01-01",
			SecurityIDRef: "sec-ghost",
			Quantity:      decimal.NewFromInt(100),
		},
	})
	assert.Empty(t, view.Holders)
}

func TestEquityCategoryKeys(t *testing.T) {
	res := NewEntityResolver(testStakeholders(), testStockClasses(), testStockPlans())

	tests := []struct {
		name string
		tx   models.Transaction
		want string
	}{
		{
			name: "plan option resolves class through the plan",
			tx: models.Transaction{
				StockPlanID:      "sp-2020",
				CompensationType: "OPTION_ISO",
			},
			want: "Common Stock Options",
		},
		{
			name: "plan RSU",
			tx: models.Transaction{
				StockPlanID:      "sp-2020",
				CompensationType: "RSU",
			},
			want: "Common Stock Equity Compensation",
		},
		{
			name: "non-plan award with explicit class",
			tx: models.Transaction{
				StockClassID:     "sc-common",
				CompensationType: "OPTION_NSO",
			},
			want: "Common Stock Non-Plan Awards",
		},
		{
			name: "option with no resolvable class",
			tx: models.Transaction{
				StockPlanID:      "sp-ghost",
				CompensationType: "OPTION_ISO",
			},
			want: "Options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, equityCategoryKey(tt.tx, res))
		})
	}
}
