package processors

import (
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// stockProcessorImpl implements the StockProcessor interface.
type stockProcessorImpl struct{}

// NewStockProcessor creates a new instance of StockProcessor.
func NewStockProcessor() StockProcessor {
	return &stockProcessorImpl{}
}

// Process applies one stock transaction to the replay state. A transaction
// whose references do not resolve is a no-op, never an error.
func (p *stockProcessorImpl) Process(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	switch tx.Type {
	case models.TxStockIssuance:
		p.processIssuance(state, tx, res)
	case models.TxStockCancellation:
		p.processCancellation(state, tx, res)
	case models.TxStockTransfer:
		p.processTransfer(state, tx, res)
	}
}

func (p *stockProcessorImpl) processIssuance(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	class, ok := res.StockClass(tx.StockClassID)
	if !ok {
		return
	}
	if _, ok := res.Stakeholder(tx.StakeholderID); !ok {
		return
	}

	qty := tx.Quantity
	factor := class.ConversionFactor()
	asConverted := qty.Mul(factor)
	votes := qty.Mul(class.VotesPerShare)

	h := state.holder(tx.StakeholderID, res)
	ch := state.classHolding(h, class.Name, models.HoldingTypeStock, class.ClassType)

	ch.Outstanding = ch.Outstanding.Add(qty)
	ch.AsConverted = ch.AsConverted.Add(asConverted)
	ch.FullyDiluted = ch.FullyDiluted.Add(qty)
	ch.VotingPower = ch.VotingPower.Add(votes)
	ch.IssuedDate = tx.Date
	ch.PricePerShare = tx.SharePrice

	h.Outstanding = h.Outstanding.Add(qty)
	h.AsConverted = h.AsConverted.Add(asConverted)
	h.FullyDiluted = h.FullyDiluted.Add(qty)
	h.Voting.Votes = h.Voting.Votes.Add(votes)

	state.securities[tx.SecurityID] = &securityRecord{
		stakeholderID: tx.StakeholderID,
		stockClassID:  tx.StockClassID,
		classKey:      class.Name,
		outstanding:   qty,
		sharePrice:    tx.SharePrice,
	}
}

func (p *stockProcessorImpl) processCancellation(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	rec, ok := state.securities[tx.SecurityIDRef]
	if !ok {
		return
	}
	class, ok := res.StockClass(rec.stockClassID)
	if !ok {
		return
	}
	h, ok := state.Holders[rec.stakeholderID]
	if !ok {
		return
	}
	ch, ok := h.ByClass[rec.classKey]
	if !ok {
		return
	}

	// Never drive outstanding below zero: an over-cancellation is clamped
	// to what is actually outstanding for the class, and the excess is
	// recorded on the holding.
	qty := decimal.Min(tx.Quantity, ch.Outstanding)
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	if tx.Quantity.GreaterThan(qty) {
		ch.ClampedQuantity = ch.ClampedQuantity.Add(tx.Quantity.Sub(qty))
	}

	factor := class.ConversionFactor()
	asConverted := qty.Mul(factor)
	votes := qty.Mul(class.VotesPerShare)

	ch.Outstanding = ch.Outstanding.Sub(qty)
	ch.AsConverted = ch.AsConverted.Sub(asConverted)
	ch.FullyDiluted = ch.FullyDiluted.Sub(qty)
	ch.VotingPower = ch.VotingPower.Sub(votes)
	ch.CancellationDate = tx.Date
	ch.CancellationReason = tx.Reason

	h.Outstanding = h.Outstanding.Sub(qty)
	h.AsConverted = h.AsConverted.Sub(asConverted)
	h.FullyDiluted = h.FullyDiluted.Sub(qty)
	h.Voting.Votes = h.Voting.Votes.Sub(votes)

	rec.outstanding = rec.outstanding.Sub(qty)
	if rec.outstanding.IsNegative() {
		rec.outstanding = decimal.Zero
	}
}

func (p *stockProcessorImpl) processTransfer(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	rec, ok := state.securities[tx.SecurityIDRef]
	if !ok {
		return
	}
	class, ok := res.StockClass(rec.stockClassID)
	if !ok {
		return
	}
	if _, ok := res.Stakeholder(tx.ToStakeholderID); !ok {
		return
	}
	from, ok := state.Holders[rec.stakeholderID]
	if !ok {
		return
	}
	fromCh, ok := from.ByClass[rec.classKey]
	if !ok {
		return
	}

	qty := decimal.Min(tx.Quantity, fromCh.Outstanding)
	if qty.IsNegative() {
		qty = decimal.Zero
	}

	factor := class.ConversionFactor()
	asConverted := qty.Mul(factor)
	votes := qty.Mul(class.VotesPerShare)

	// Symmetric debit/credit: total outstanding for the class is preserved.
	fromCh.Outstanding = fromCh.Outstanding.Sub(qty)
	fromCh.AsConverted = fromCh.AsConverted.Sub(asConverted)
	fromCh.FullyDiluted = fromCh.FullyDiluted.Sub(qty)
	fromCh.VotingPower = fromCh.VotingPower.Sub(votes)
	from.Outstanding = from.Outstanding.Sub(qty)
	from.AsConverted = from.AsConverted.Sub(asConverted)
	from.FullyDiluted = from.FullyDiluted.Sub(qty)
	from.Voting.Votes = from.Voting.Votes.Sub(votes)

	to := state.holder(tx.ToStakeholderID, res)
	toCh := state.classHolding(to, rec.classKey, models.HoldingTypeStock, class.ClassType)
	toCh.Outstanding = toCh.Outstanding.Add(qty)
	toCh.AsConverted = toCh.AsConverted.Add(asConverted)
	toCh.FullyDiluted = toCh.FullyDiluted.Add(qty)
	toCh.VotingPower = toCh.VotingPower.Add(votes)
	if toCh.IssuedDate == "" {
		toCh.IssuedDate = tx.Date
	}
	toCh.PricePerShare = rec.sharePrice
	to.Outstanding = to.Outstanding.Add(qty)
	to.AsConverted = to.AsConverted.Add(asConverted)
	to.FullyDiluted = to.FullyDiluted.Add(qty)
	to.Voting.Votes = to.Voting.Votes.Add(votes)

	rec.outstanding = rec.outstanding.Sub(qty)
	if rec.outstanding.IsNegative() {
		rec.outstanding = decimal.Zero
	}
}
