package processors

import (
	"encoding/json"
	"testing"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStakeholders() []models.Stakeholder {
	return []models.Stakeholder{
		{ID: "sh-founder", LegalName: "Ada Founder", Relationship: models.RelationshipFounder},
		{ID: "sh-investor", LegalName: "Vertex Capital", Relationship: models.RelationshipInvestor},
		{ID: "sh-employee", LegalName: "Eve Employee", Relationship: models.RelationshipEmployee},
	}
}

func testStockClasses() []models.StockClass {
	return []models.StockClass{
		{
			ID:               "sc-common",
			Name:             "Common Stock",
			ClassType:        models.StockClassCommon,
			VotesPerShare:    decimal.NewFromInt(1),
			SharesAuthorized: decimal.NewFromInt(10_000_000),
		},
		{
			ID:               "sc-series-a",
			Name:             "Series A Preferred",
			ClassType:        models.StockClassPreferred,
			VotesPerShare:    decimal.NewFromInt(1),
			SharesAuthorized: decimal.NewFromInt(2_000_000),
			ConversionRights: []models.StockClassConversionRight{
				{
					Type: "RATIO_CONVERSION",
					Ratio: &models.ConversionRatio{
						Numerator:   decimal.NewFromInt(2),
						Denominator: decimal.NewFromInt(1),
					},
					ConvertsToStockClassID: "sc-common",
				},
			},
		},
	}
}

func testStockPlans() []models.StockPlan {
	return []models.StockPlan{
		{
			ID:                    "sp-2020",
			PlanName:              "2020 Equity Incentive Plan",
			InitialSharesReserved: decimal.NewFromInt(1000),
			StockClassIDs:         []string{"sc-common"},
		},
	}
}

func newTestProcessor() *CapTableProcessor {
	return NewCapTableProcessor(ReplayOptions{WarrantClassification: ClassifyAsWarrant})
}

func replay(t *testing.T, txs []models.Transaction) *models.CapTableView {
	t.Helper()
	return newTestProcessor().Process(txs, testStakeholders(), testStockClasses(), testStockPlans())
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	exp, err := decimal.NewFromString(expected)
	require.NoError(t, err)
	assert.True(t, exp.Equal(actual), "expected %s, got %s", expected, actual.String())
}

func stockIssuance(id, stakeholderID, classID, date string, qty, price int64) models.Transaction {
	return models.Transaction{
		ID:            "tx-" + id,
		SecurityID:    id,
		Type:          models.TxStockIssuance,
		Date:          date,
		StakeholderID: stakeholderID,
		StockClassID:  classID,
		Quantity:      decimal.NewFromInt(qty),
		SharePrice:    decimal.NewFromInt(price),
	}
}

func TestReplaySingleIssuanceOwnsEverything(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-investor", "sc-common", "2021-01-15", 1000, 1),
	})

	require.Len(t, view.Holders, 1)
	h := view.Holders["sh-investor"]
	require.NotNil(t, h)
	assert.Equal(t, "Vertex Capital", h.Name)
	assertDecimal(t, "1000", h.Outstanding)
	assertDecimal(t, "1000", h.AsConverted)
	assertDecimal(t, "1000", h.FullyDiluted)
	assert.Equal(t, 100.0, h.Percentages.Outstanding)
	assert.Equal(t, 100.0, h.Percentages.Voting)

	assertDecimal(t, "1000", view.Totals.Outstanding)
	assertDecimal(t, "1000", view.Totals.VotingRights)
}

func TestReplayCancellationReducesHolder(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 1000, 1),
		stockIssuance("sec-2", "sh-investor", "sc-common", "2021-02-01", 1000, 2),
		{
			ID:            "tx-cancel",
			Type:          models.TxStockCancellation,
			Date:          "2021-03-01",
			SecurityIDRef: "sec-1",
			Quantity:      decimal.NewFromInt(400),
			Reason:        "repurchase",
		},
	})

	founder := view.Holders["sh-founder"]
	require.NotNil(t, founder)
	assertDecimal(t, "600", founder.Outstanding)
	assertDecimal(t, "1600", view.Totals.Outstanding)
	assert.Equal(t, 37.5, founder.Percentages.Outstanding)
	assert.Equal(t, 62.5, view.Holders["sh-investor"].Percentages.Outstanding)

	ch := founder.ByClass["Common Stock"]
	require.NotNil(t, ch)
	assert.Equal(t, "2021-03-01", ch.CancellationDate)
	assert.Equal(t, "repurchase", ch.CancellationReason)
}

func TestReplayOverCancellationClampsAtZero(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 100, 1),
		{
			ID:            "tx-cancel",
			Type:          models.TxStockCancellation,
			Date:          "2021-02-01",
			SecurityIDRef: "sec-1",
			Quantity:      decimal.NewFromInt(250),
		},
	})

	founder := view.Holders["sh-founder"]
	require.NotNil(t, founder)
	assertDecimal(t, "0", founder.Outstanding)
	assert.False(t, founder.Outstanding.IsNegative())
	assertDecimal(t, "0", view.Totals.Outstanding)

	// The 150 shares the cancellation asked for beyond the outstanding 100
	// stay visible on the holding.
	ch := founder.ByClass["Common Stock"]
	require.NotNil(t, ch)
	assertDecimal(t, "150", ch.ClampedQuantity)
}

func TestReplayExactCancellationRecordsNoClamp(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 100, 1),
		{
			ID:            "tx-cancel",
			Type:          models.TxStockCancellation,
			Date:          "2021-02-01",
			SecurityIDRef: "sec-1",
			Quantity:      decimal.NewFromInt(100),
		},
	})

	ch := view.Holders["sh-founder"].ByClass["Common Stock"]
	require.NotNil(t, ch)
	assertDecimal(t, "0", ch.ClampedQuantity)
}

func TestReplayTransferPreservesTotals(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 1000, 1),
		{
			ID:              "tx-transfer",
			Type:            models.TxStockTransfer,
			Date:            "2021-04-01",
			SecurityIDRef:   "sec-1",
			ToStakeholderID: "sh-investor",
			Quantity:        decimal.NewFromInt(400),
		},
	})

	assertDecimal(t, "600", view.Holders["sh-founder"].Outstanding)
	assertDecimal(t, "400", view.Holders["sh-investor"].Outstanding)
	assertDecimal(t, "1000", view.Totals.Outstanding)
	assertDecimal(t, "1000", view.Totals.VotingRights)
}

func TestReplayPreferredConvertsAtRatio(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-investor", "sc-series-a", "2021-06-01", 500, 4),
	})

	h := view.Holders["sh-investor"]
	require.NotNil(t, h)
	assertDecimal(t, "500", h.Outstanding)
	assertDecimal(t, "1000", h.AsConverted)
	assertDecimal(t, "500", h.FullyDiluted)

	ch := h.ByClass["Series A Preferred"]
	require.NotNil(t, ch)
	assert.Equal(t, models.StockClassPreferred, ch.ClassType)
	assertDecimal(t, "1000", ch.AsConverted)
}

func TestReplayVotingPartition(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 600, 1),
		stockIssuance("sec-2", "sh-investor", "sc-series-a", "2021-02-01", 400, 4),
	})

	assertDecimal(t, "1000", view.VotingTotals.Total)
	assertDecimal(t, "600", view.VotingTotals.Common)
	assertDecimal(t, "400", view.VotingTotals.Preferred)
	assertDecimal(t, "600", view.VotingTotals.ByClass["Common Stock"])
	assertDecimal(t, "400", view.VotingTotals.ByClass["Series A Preferred"])

	founder := view.Holders["sh-founder"]
	assert.Equal(t, 60.0, founder.Voting.Columns.TotalAsConverted)
	assert.Equal(t, 100.0, founder.Voting.Columns.AllCommon)
	assert.Equal(t, 0.0, founder.Voting.Columns.AllPreferred)
}

func TestReplaySkipsUnresolvedReferences(t *testing.T) {
	view := replay(t, []models.Transaction{
		// Unknown stock class: no-op.
		stockIssuance("sec-1", "sh-founder", "sc-missing", "2021-01-01", 1000, 1),
		// Unknown stakeholder: no-op.
		stockIssuance("sec-2", "sh-missing", "sc-common", "2021-01-01", 1000, 1),
		// Back-reference to a security that was never issued: no-op.
		{
			ID:            "tx-cancel",
			Type:          models.TxStockCancellation,
			Date:          "2021-02-01",
			SecurityIDRef: "sec-ghost",
			Quantity:      decimal.NewFromInt(100),
		},
		stockIssuance("sec-3", "sh-investor", "sc-common", "2021-03-01", 500, 1),
	})

	require.Len(t, view.Holders, 1)
	assertDecimal(t, "500", view.Totals.Outstanding)
}

func TestReplayIsDeterministic(t *testing.T) {
	txs := []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 1000, 1),
		stockIssuance("sec-2", "sh-investor", "sc-series-a", "2021-02-01", 500, 4),
		{
			ID:            "tx-cancel",
			Type:          models.TxStockCancellation,
			Date:          "2021-03-01",
			SecurityIDRef: "sec-1",
			Quantity:      decimal.NewFromInt(250),
		},
	}

	first := replay(t, txs)
	second := replay(t, txs)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestReplayPercentagesCloseToWhole(t *testing.T) {
	view := replay(t, []models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 3333, 1),
		stockIssuance("sec-2", "sh-investor", "sc-common", "2021-01-02", 3333, 1),
		stockIssuance("sec-3", "sh-employee", "sc-common", "2021-01-03", 3334, 1),
	})

	sum := 0.0
	for _, h := range view.Holders {
		sum += h.Percentages.Outstanding
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestReplayEmptyLogYieldsZeroPercentages(t *testing.T) {
	view := replay(t, nil)

	assert.Empty(t, view.Holders)
	assertDecimal(t, "0", view.Totals.Outstanding)
	assertDecimal(t, "0", view.VotingTotals.Total)
}

func TestReplayPlanPoolAdjustment(t *testing.T) {
	view := replay(t, []models.Transaction{
		{
			ID:               "tx-grant",
			SecurityID:       "sec-grant",
			Type:             models.TxEquityCompIssuance,
			Date:             "2021-01-01",
			StakeholderID:    "sh-employee",
			StockPlanID:      "sp-2020",
			CompensationType: "OPTION_ISO",
			Quantity:         decimal.NewFromInt(300),
		},
		{
			ID:                "tx-pool",
			Type:              models.TxStockPlanPoolAdjustment,
			Date:              "2021-06-01",
			StockPlanID:       "sp-2020",
			NewSharesReserved: decimal.NewFromInt(2500),
		},
		// Adjustment for an unknown plan is skipped.
		{
			ID:                "tx-pool-ghost",
			Type:              models.TxStockPlanPoolAdjustment,
			Date:              "2021-07-01",
			StockPlanID:       "sp-ghost",
			NewSharesReserved: decimal.NewFromInt(99999),
		},
	})

	assertDecimal(t, "2500", view.OptionsPool.TotalAuthorized)
	assertDecimal(t, "300", view.OptionsPool.TotalIssued)
	assertDecimal(t, "2200", view.OptionsPool.Unallocated)
}

func TestReplayOptionsPoolUnallocatedFloorsAtZero(t *testing.T) {
	view := replay(t, []models.Transaction{
		{
			ID:               "tx-grant",
			SecurityID:       "sec-grant",
			Type:             models.TxEquityCompIssuance,
			Date:             "2021-01-01",
			StakeholderID:    "sh-employee",
			StockPlanID:      "sp-2020",
			CompensationType: "OPTION_ISO",
			Quantity:         decimal.NewFromInt(1500),
		},
	})

	assertDecimal(t, "1000", view.OptionsPool.TotalAuthorized)
	assertDecimal(t, "1500", view.OptionsPool.TotalIssued)
	assertDecimal(t, "0", view.OptionsPool.Unallocated)
}

func TestValidateReferences(t *testing.T) {
	checks := ValidateReferences([]models.Transaction{
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-01-01", 1000, 1),
		{
			ID:            "tx-cancel-ok",
			Type:          models.TxStockCancellation,
			Date:          "2021-02-01",
			SecurityIDRef: "sec-1",
			Quantity:      decimal.NewFromInt(100),
		},
		{
			ID:            "tx-cancel-ghost",
			Type:          models.TxStockCancellation,
			Date:          "2021-03-01",
			SecurityIDRef: "sec-ghost",
			Quantity:      decimal.NewFromInt(100),
		},
		{
			ID:       "tx-cancel-empty",
			Type:     models.TxStockCancellation,
			Date:     "2021-04-01",
			Quantity: decimal.NewFromInt(100),
		},
	})

	require.Len(t, checks, 4)
	assert.True(t, checks[0].OK)
	assert.True(t, checks[1].OK)
	assert.False(t, checks[2].OK)
	assert.Contains(t, checks[2].Reason, "sec-ghost")
	assert.False(t, checks[3].OK)
	assert.Equal(t, "missing security_id_ref", checks[3].Reason)
}

func TestValidateReferencesForwardReference(t *testing.T) {
	// The reference exists but only later in the sequence, which replay
	// cannot resolve either.
	checks := ValidateReferences([]models.Transaction{
		{
			ID:            "tx-cancel",
			Type:          models.TxStockCancellation,
			Date:          "2021-01-01",
			SecurityIDRef: "sec-1",
			Quantity:      decimal.NewFromInt(100),
		},
		stockIssuance("sec-1", "sh-founder", "sc-common", "2021-02-01", 1000, 1),
	})

	require.Len(t, checks, 2)
	assert.False(t, checks[0].OK)
	assert.True(t, checks[1].OK)
}
