package processors

import (
	"fmt"

	"github.com/opencaptable/captable/backend/src/models"
)

// CapTableProcessor drives one replay: a strict left-to-right fold over the
// transaction log, delegating each transaction to its security-family
// processor, followed by a single normalization pass.
//
// Replay is deterministic and free of I/O: the same inputs always produce
// the same view, so calling Process twice yields identical results. One
// invocation owns its entire state; concurrent replays for different issuers
// are safe, sharing state across replays is not.
type CapTableProcessor struct {
	stock       StockProcessor
	equityComp  EquityCompProcessor
	convertible ConvertibleProcessor
	warrant     WarrantProcessor
	opts        ReplayOptions
}

// NewCapTableProcessor creates a replay processor with the given options.
func NewCapTableProcessor(opts ReplayOptions) *CapTableProcessor {
	return &CapTableProcessor{
		stock:       NewStockProcessor(),
		equityComp:  NewEquityCompProcessor(),
		convertible: NewConvertibleProcessor(),
		warrant:     NewWarrantProcessor(),
		opts:        opts,
	}
}

// Process replays the transaction log against the supplied reference
// entities and returns the normalized cap-table view.
//
// Transactions must already be in causal order: an issuance must precede any
// cancellation, transfer, or exercise that references its security id. The
// engine does not re-sort. A transaction whose references do not resolve is
// skipped without failing the replay; use ValidateReferences beforehand to
// surface such gaps.
func (p *CapTableProcessor) Process(
	txs []models.Transaction,
	stakeholders []models.Stakeholder,
	stockClasses []models.StockClass,
	stockPlans []models.StockPlan,
) *models.CapTableView {
	res := NewEntityResolver(stakeholders, stockClasses, stockPlans)
	state := newCapTableState(p.opts)

	for _, plan := range stockPlans {
		state.planReserved[plan.ID] = plan.InitialSharesReserved
	}
	for _, class := range stockClasses {
		state.classAuthorized[class.ID] = class.SharesAuthorized
	}

	for _, tx := range txs {
		switch tx.Type {
		case models.TxStockIssuance, models.TxStockCancellation, models.TxStockTransfer:
			p.stock.Process(state, tx, res)
		case models.TxEquityCompIssuance, models.TxEquityCompExercise:
			p.equityComp.Process(state, tx, res)
		case models.TxConvertibleIssuance:
			p.convertible.Process(state, tx, res)
		case models.TxWarrantIssuance, models.TxWarrantExercise, models.TxWarrantCancellation:
			p.warrant.Process(state, tx, res)
		case models.TxIssuerAuthorizedSharesAdjustment,
			models.TxStockClassAuthorizedSharesAdjustment,
			models.TxStockPlanPoolAdjustment:
			applyAdjustment(state, tx, res)
		}
	}

	return normalize(state)
}

// applyAdjustment updates the authorized-share tallies. Adjustments carry
// only a new count; an adjustment for an unknown class or plan is skipped.
func applyAdjustment(state *CapTableState, tx models.Transaction, res *EntityResolver) {
	switch tx.Type {
	case models.TxIssuerAuthorizedSharesAdjustment:
		state.issuerAuthorized = tx.NewSharesAuthorized
	case models.TxStockClassAuthorizedSharesAdjustment:
		if _, ok := res.StockClass(tx.StockClassID); !ok {
			return
		}
		state.classAuthorized[tx.StockClassID] = tx.NewSharesAuthorized
	case models.TxStockPlanPoolAdjustment:
		if _, ok := res.StockPlan(tx.StockPlanID); !ok {
			return
		}
		state.planReserved[tx.StockPlanID] = tx.NewSharesReserved
	}
}

// ReferenceCheck is the result of checking one transaction's back-reference
// against the transactions before it.
type ReferenceCheck struct {
	TransactionID string                 `json:"transaction_id"`
	Type          models.TransactionType `json:"type"`
	SecurityIDRef string                 `json:"security_id_ref,omitempty"`
	OK            bool                   `json:"ok"`
	Reason        string                 `json:"reason,omitempty"`
}

// ValidateReferences checks, without mutating anything, that every
// back-reference in the sequence resolves to an earlier issuance. Replay
// itself tolerates gaps (the source log may legitimately reference entities
// outside the visible set); this pre-pass exists so callers can surface
// them instead of silently skipping.
func ValidateReferences(txs []models.Transaction) []ReferenceCheck {
	seen := make(map[string]bool, len(txs))
	checks := make([]ReferenceCheck, 0, len(txs))

	for _, tx := range txs {
		check := ReferenceCheck{TransactionID: tx.ID, Type: tx.Type, OK: true}
		if tx.ReferencesSecurity() {
			check.SecurityIDRef = tx.SecurityIDRef
			if tx.SecurityIDRef == "" {
				check.OK = false
				check.Reason = "missing security_id_ref"
			} else if !seen[tx.SecurityIDRef] {
				check.OK = false
				check.Reason = fmt.Sprintf("security %s not issued earlier in the sequence", tx.SecurityIDRef)
			}
		}
		if tx.IsIssuance() && tx.SecurityID != "" {
			seen[tx.SecurityID] = true
		}
		checks = append(checks, check)
	}
	return checks
}
