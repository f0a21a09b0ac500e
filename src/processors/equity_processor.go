package processors

import (
	"strings"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// equityCompProcessorImpl implements the EquityCompProcessor interface.
type equityCompProcessorImpl struct{}

// NewEquityCompProcessor creates a new instance of EquityCompProcessor.
func NewEquityCompProcessor() EquityCompProcessor {
	return &equityCompProcessorImpl{}
}

// Process applies one equity compensation transaction. Grants contribute to
// fully diluted only; outstanding shares only ever arrive through the
// separate stock issuance that an exercise results in.
func (p *equityCompProcessorImpl) Process(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	switch tx.Type {
	case models.TxEquityCompIssuance:
		p.processIssuance(state, tx, res)
	case models.TxEquityCompExercise:
		p.processExercise(state, tx)
	}
}

// equityCategoryKey picks the display category for a grant: options under a
// plan are grouped per target stock class, grants outside any plan are
// "Non-Plan Awards", and remaining plan awards are "Equity Compensation".
func equityCategoryKey(tx models.Transaction, res *EntityResolver) string {
	isOption := strings.Contains(tx.CompensationType, "OPTION_")
	planAward := tx.StockPlanID != ""

	className := ""
	if class, ok := res.StockClass(tx.StockClassID); ok {
		className = class.Name
	} else if plan, ok := res.StockPlan(tx.StockPlanID); ok && len(plan.StockClassIDs) > 0 {
		if class, ok := res.StockClass(plan.StockClassIDs[0]); ok {
			className = class.Name
		}
	}

	suffix := "Equity Compensation"
	switch {
	case !planAward:
		suffix = "Non-Plan Awards"
	case isOption:
		suffix = "Options"
	}
	if className == "" {
		return suffix
	}
	return className + " " + suffix
}

func (p *equityCompProcessorImpl) processIssuance(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	if _, ok := res.Stakeholder(tx.StakeholderID); !ok {
		return
	}

	key := equityCategoryKey(tx, res)
	planAward := tx.StockPlanID != ""
	qty := tx.Quantity

	h := state.holder(tx.StakeholderID, res)
	ch := state.classHolding(h, key, models.HoldingTypeEquityComp, "")
	ch.FullyDiluted = ch.FullyDiluted.Add(qty)
	ch.IssuedDate = tx.Date
	ch.PricePerShare = tx.ExercisePrice
	h.FullyDiluted = h.FullyDiluted.Add(qty)

	pos := models.GrantPosition{
		SecurityID:        tx.SecurityID,
		Date:              tx.Date,
		ClassKey:          key,
		Quantity:          qty,
		ExercisePrice:     tx.ExercisePrice,
		CompensationType:  tx.CompensationType,
		StockPlanID:       tx.StockPlanID,
		VestingScheduleID: tx.VestingScheduleID,
	}
	if tx.ExpirationDate != nil {
		pos.ExpirationDate = tx.ExpirationDate.Format("2006-01-02")
	}

	var index int
	if planAward {
		h.Plans.StockPlan = append(h.Plans.StockPlan, pos)
		index = len(h.Plans.StockPlan) - 1
	} else {
		h.Plans.NonPlan = append(h.Plans.NonPlan, pos)
		index = len(h.Plans.NonPlan) - 1
	}
	state.grants[tx.SecurityID] = grantRecord{
		stakeholderID: tx.StakeholderID,
		classKey:      key,
		planAward:     planAward,
		index:         index,
	}
	state.grantIssued = state.grantIssued.Add(qty)
}

func (p *equityCompProcessorImpl) processExercise(state *CapTableState, tx models.Transaction) {
	rec, ok := state.grants[tx.SecurityIDRef]
	if !ok {
		return
	}
	pos := state.grantPosition(rec)
	if pos == nil {
		return
	}
	h := state.Holders[rec.stakeholderID]
	ch, ok := h.ByClass[rec.classKey]
	if !ok {
		return
	}

	pos.ExercisedQuantity = pos.ExercisedQuantity.Add(tx.Quantity)

	// The category's fully diluted count is floored at zero; the resulting
	// share ownership arrives as a separate stock issuance transaction.
	dec := decimal.Min(tx.Quantity, ch.FullyDiluted)
	if dec.IsNegative() {
		dec = decimal.Zero
	}
	ch.FullyDiluted = ch.FullyDiluted.Sub(dec)
	h.FullyDiluted = h.FullyDiluted.Sub(dec)
}
