package processors

import (
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// normalize runs the two-pass percentage computation over the folded state:
// pass one accumulates the global denominators, pass two derives per-holder
// percentages. A zero denominator always yields 0, never a divide fault.
func normalize(state *CapTableState) *models.CapTableView {
	totals := models.CapTableTotals{
		Outstanding:  decimal.Zero,
		AsConverted:  decimal.Zero,
		FullyDiluted: decimal.Zero,
		VotingRights: decimal.Zero,
	}
	voting := models.VotingTotals{
		Total:     decimal.Zero,
		Common:    decimal.Zero,
		Preferred: decimal.Zero,
		ByClass:   make(map[string]decimal.Decimal),
	}

	for _, h := range state.Holders {
		totals.Outstanding = totals.Outstanding.Add(h.Outstanding)
		totals.AsConverted = totals.AsConverted.Add(h.AsConverted)
		totals.FullyDiluted = totals.FullyDiluted.Add(h.FullyDiluted)
		totals.VotingRights = totals.VotingRights.Add(h.Voting.Votes)

		for key, ch := range h.ByClass {
			if ch.Type != models.HoldingTypeStock {
				continue
			}
			voting.Total = voting.Total.Add(ch.VotingPower)
			if ch.ClassType == models.StockClassPreferred {
				voting.Preferred = voting.Preferred.Add(ch.VotingPower)
			} else {
				voting.Common = voting.Common.Add(ch.VotingPower)
			}
			voting.ByClass[key] = voting.ByClass[key].Add(ch.VotingPower)
		}
	}

	for _, h := range state.Holders {
		h.Percentages = models.HolderPercentages{
			Outstanding:  percentage(h.Outstanding, totals.Outstanding),
			AsConverted:  percentage(h.AsConverted, totals.AsConverted),
			FullyDiluted: percentage(h.FullyDiluted, totals.FullyDiluted),
			Voting:       percentage(h.Voting.Votes, totals.VotingRights),
		}

		cols := models.VotingColumns{ByClass: make(map[string]float64)}
		holderCommon := decimal.Zero
		holderPreferred := decimal.Zero
		for key, ch := range h.ByClass {
			if ch.Type != models.HoldingTypeStock {
				continue
			}
			if ch.ClassType == models.StockClassPreferred {
				holderPreferred = holderPreferred.Add(ch.VotingPower)
			} else {
				holderCommon = holderCommon.Add(ch.VotingPower)
			}
			cols.ByClass[key] = percentage(ch.VotingPower, voting.ByClass[key])
		}
		cols.TotalAsConverted = percentage(h.Voting.Votes, voting.Total)
		cols.AllCommon = percentage(holderCommon, voting.Common)
		cols.AllPreferred = percentage(holderPreferred, voting.Preferred)
		h.Voting.Columns = cols
	}

	return &models.CapTableView{
		Holders:      state.Holders,
		Totals:       totals,
		VotingTotals: voting,
		OptionsPool:  optionsPool(state),
	}
}

// optionsPool summarizes the equity plan pool: total reserved (as adjusted),
// total granted, and the unallocated remainder floored at zero.
func optionsPool(state *CapTableState) models.OptionsPoolSummary {
	totalAuthorized := decimal.Zero
	for _, reserved := range state.planReserved {
		totalAuthorized = totalAuthorized.Add(reserved)
	}
	unallocated := totalAuthorized.Sub(state.grantIssued)
	if unallocated.IsNegative() {
		unallocated = decimal.Zero
	}
	return models.OptionsPoolSummary{
		TotalAuthorized: totalAuthorized,
		TotalIssued:     state.grantIssued,
		Unallocated:     unallocated,
	}
}

// percentage divides part by total and returns a percentage in [0,100]
// rounded to two decimals, or 0 when the total is zero.
func percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	f, _ := part.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}
