package processors

import (
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// warrantProcessorImpl implements the WarrantProcessor interface.
type warrantProcessorImpl struct{}

// NewWarrantProcessor creates a new instance of WarrantProcessor.
func NewWarrantProcessor() WarrantProcessor {
	return &warrantProcessorImpl{}
}

// Process applies one warrant transaction. Warrants contribute to fully
// diluted only, and only when their exercise triggers resolve a concrete
// share count.
func (p *warrantProcessorImpl) Process(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	switch tx.Type {
	case models.TxWarrantIssuance:
		p.processIssuance(state, tx, res)
	case models.TxWarrantExercise:
		p.processExercise(state, tx)
	case models.TxWarrantCancellation:
		p.processCancellation(state, tx)
	}
}

func (p *warrantProcessorImpl) processIssuance(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	if _, ok := res.Stakeholder(tx.StakeholderID); !ok {
		return
	}

	terms := ExtractWarrantTerms(tx)
	class, classOK := res.StockClass(terms.ConvertsToStockClassID)

	// Classification of a warrant without a specific target stock class is a
	// configured product decision, not a hard-coded rule.
	if !classOK && state.opts.WarrantClassification == ClassifyAsConvertible {
		h := state.holder(tx.StakeholderID, res)
		appendConvertible(&h.Convertibles, models.ConvertibleOther, models.ConvertiblePosition{
			SecurityID: tx.SecurityID,
			Date:       tx.Date,
			Amount:     tx.PurchasePrice,
			Currency:   tx.Currency,
		})
		return
	}

	// A warrant with no resolvable share count cannot be accounted.
	if terms.ShareCount == nil {
		return
	}
	count := *terms.ShareCount

	key := "Warrants"
	if classOK {
		key = class.Name + " Warrants"
	}

	h := state.holder(tx.StakeholderID, res)
	ch := state.classHolding(h, key, models.HoldingTypeWarrants, "")
	ch.FullyDiluted = ch.FullyDiluted.Add(count)
	ch.IssuedDate = tx.Date
	ch.PricePerShare = tx.PurchasePrice
	h.FullyDiluted = h.FullyDiluted.Add(count)

	h.Warrants = append(h.Warrants, models.WarrantPosition{
		SecurityID:      tx.SecurityID,
		Date:            tx.Date,
		ClassKey:        key,
		SharesIssuable:  count,
		SharesRemaining: count,
		PurchasePrice:   tx.PurchasePrice,
		ExercisePrice:   terms.ExercisePrice,
		TriggerType:     terms.TriggerType,
		ValuationAmount: terms.ValuationAmount,
		DiscountAmount:  terms.DiscountAmount,
	})
	state.warrants[tx.SecurityID] = warrantRecord{
		stakeholderID: tx.StakeholderID,
		classKey:      key,
		index:         len(h.Warrants) - 1,
	}
}

func (p *warrantProcessorImpl) processExercise(state *CapTableState, tx models.Transaction) {
	pos, ch, h := p.resolve(state, tx.SecurityIDRef)
	if pos == nil {
		return
	}

	dec := decimal.Min(tx.Quantity, pos.SharesRemaining)
	if dec.IsNegative() {
		dec = decimal.Zero
	}
	pos.SharesRemaining = pos.SharesRemaining.Sub(dec)
	pos.SharesExercised = pos.SharesExercised.Add(tx.Quantity)

	fdDec := decimal.Min(dec, ch.FullyDiluted)
	ch.FullyDiluted = ch.FullyDiluted.Sub(fdDec)
	h.FullyDiluted = h.FullyDiluted.Sub(fdDec)
}

func (p *warrantProcessorImpl) processCancellation(state *CapTableState, tx models.Transaction) {
	pos, ch, h := p.resolve(state, tx.SecurityIDRef)
	if pos == nil {
		return
	}

	dec := decimal.Min(tx.Quantity, pos.SharesRemaining)
	if dec.IsNegative() {
		dec = decimal.Zero
	}
	pos.SharesRemaining = pos.SharesRemaining.Sub(dec)
	pos.SharesCancelled = pos.SharesCancelled.Add(dec)
	ch.CancellationDate = tx.Date
	ch.CancellationReason = tx.Reason

	fdDec := decimal.Min(dec, ch.FullyDiluted)
	ch.FullyDiluted = ch.FullyDiluted.Sub(fdDec)
	h.FullyDiluted = h.FullyDiluted.Sub(fdDec)
}

func (p *warrantProcessorImpl) resolve(state *CapTableState, securityIDRef string) (*models.WarrantPosition, *models.ClassHolding, *models.HolderState) {
	rec, ok := state.warrants[securityIDRef]
	if !ok {
		return nil, nil, nil
	}
	pos := state.warrantPosition(rec)
	if pos == nil {
		return nil, nil, nil
	}
	h := state.Holders[rec.stakeholderID]
	ch, ok := h.ByClass[rec.classKey]
	if !ok {
		return nil, nil, nil
	}
	return pos, ch, h
}
