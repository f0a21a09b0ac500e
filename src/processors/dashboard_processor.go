package processors

import (
	"time"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// DashboardProcessor is a separate, lighter fold over the transaction log
// producing issuer-level scalars. It does not depend on the full replay
// structure of CapTableProcessor.
type DashboardProcessor struct{}

// NewDashboardProcessor creates a new DashboardProcessor.
func NewDashboardProcessor() *DashboardProcessor {
	return &DashboardProcessor{}
}

// dashSecurity tracks enough of one security for the ownership breakdown:
// who holds it (by relationship) and how much of its fully diluted share
// contribution remains.
type dashSecurity struct {
	relationship models.StakeholderRelationship
	remaining    decimal.Decimal
}

// Process folds the log once and returns the dashboard summary.
func (p *DashboardProcessor) Process(
	txs []models.Transaction,
	stakeholders []models.Stakeholder,
	issuer models.Issuer,
) *models.DashboardSummary {
	relationships := make(map[string]models.StakeholderRelationship, len(stakeholders))
	for _, s := range stakeholders {
		relationships[s.ID] = s.Relationship
	}

	summary := &models.DashboardSummary{
		TotalRaised:      decimal.Zero,
		LatestSharePrice: decimal.Zero,
	}

	authorized := issuer.SharesAuthorized
	securities := make(map[string]*dashSecurity)
	// Fully diluted shares per relationship: grants and resolvable warrants
	// count alongside outstanding stock.
	byRelationship := make(map[models.StakeholderRelationship]decimal.Decimal)

	var latestIssuanceDate string
	var latestIssuanceCreated time.Time

	for _, tx := range txs {
		switch tx.Type {
		case models.TxStockIssuance:
			if tx.Date > latestIssuanceDate ||
				(tx.Date == latestIssuanceDate && !tx.CreatedAt.Before(latestIssuanceCreated)) {
				latestIssuanceDate = tx.Date
				latestIssuanceCreated = tx.CreatedAt
				summary.LatestSharePrice = tx.SharePrice
			}
			rel := relationships[tx.StakeholderID]
			if rel == models.RelationshipInvestor {
				summary.TotalRaised = summary.TotalRaised.Add(tx.Quantity.Mul(tx.SharePrice))
			}
			securities[tx.SecurityID] = &dashSecurity{relationship: rel, remaining: tx.Quantity}
			byRelationship[rel] = byRelationship[rel].Add(tx.Quantity)

			if tx.SharePrice.IsPositive() && authorized.IsPositive() {
				p.recordValuation(summary, tx, models.ValuationStockPriced, tx.SharePrice.Mul(authorized))
			}

		case models.TxStockCancellation:
			p.decrement(securities, byRelationship, tx)

		case models.TxStockTransfer:
			if rec, ok := securities[tx.SecurityIDRef]; ok {
				qty := decimal.Min(tx.Quantity, rec.remaining)
				rec.remaining = rec.remaining.Sub(qty)
				toRel := relationships[tx.ToStakeholderID]
				byRelationship[rec.relationship] = byRelationship[rec.relationship].Sub(qty)
				byRelationship[toRel] = byRelationship[toRel].Add(qty)
			}

		case models.TxEquityCompIssuance:
			rel := relationships[tx.StakeholderID]
			securities[tx.SecurityID] = &dashSecurity{relationship: rel, remaining: tx.Quantity}
			byRelationship[rel] = byRelationship[rel].Add(tx.Quantity)

		case models.TxEquityCompExercise:
			// The resulting stock issuance adds the shares back, so the
			// relationship's fully diluted total stays constant on exercise.
			p.decrement(securities, byRelationship, tx)

		case models.TxConvertibleIssuance:
			if relationships[tx.StakeholderID] == models.RelationshipInvestor {
				summary.TotalRaised = summary.TotalRaised.Add(tx.InvestmentAmount)
			}
			terms := ExtractConversionTerms(tx.ConversionTriggers)
			if terms.ValuationCap != nil && terms.ValuationCap.IsPositive() {
				p.recordValuation(summary, tx, models.ValuationConvertibleCap, *terms.ValuationCap)
			}

		case models.TxWarrantIssuance:
			rel := relationships[tx.StakeholderID]
			if rel == models.RelationshipInvestor {
				summary.TotalRaised = summary.TotalRaised.Add(tx.PurchasePrice)
			}
			if terms := ExtractWarrantTerms(tx); terms.ShareCount != nil {
				securities[tx.SecurityID] = &dashSecurity{relationship: rel, remaining: *terms.ShareCount}
				byRelationship[rel] = byRelationship[rel].Add(*terms.ShareCount)
			}

		case models.TxWarrantExercise, models.TxWarrantCancellation:
			p.decrement(securities, byRelationship, tx)

		case models.TxIssuerAuthorizedSharesAdjustment:
			authorized = tx.NewSharesAuthorized
		}
	}

	total := decimal.Zero
	for _, qty := range byRelationship {
		total = total.Add(qty)
	}
	if !total.IsZero() {
		summary.OwnershipByRelationship = make(map[string]float64, len(byRelationship))
		for rel, qty := range byRelationship {
			summary.OwnershipByRelationship[string(rel)] = percentage(qty, total)
		}
	}

	return summary
}

// decrement removes a referenced security's shares from its holder's
// relationship bucket, clamped to what the security still carries.
func (p *DashboardProcessor) decrement(
	securities map[string]*dashSecurity,
	byRelationship map[models.StakeholderRelationship]decimal.Decimal,
	tx models.Transaction,
) {
	rec, ok := securities[tx.SecurityIDRef]
	if !ok {
		return
	}
	qty := decimal.Min(tx.Quantity, rec.remaining)
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	rec.remaining = rec.remaining.Sub(qty)
	byRelationship[rec.relationship] = byRelationship[rec.relationship].Sub(qty)
}

// recordValuation keeps the most recent valuation estimate, compared by
// creation time with the transaction date as fallback.
func (p *DashboardProcessor) recordValuation(summary *models.DashboardSummary, tx models.Transaction, kind models.ValuationKind, amount decimal.Decimal) {
	asOf := tx.CreatedAt
	if asOf.IsZero() {
		if d, err := time.Parse("2006-01-02", tx.Date); err == nil {
			asOf = d
		}
	}
	if summary.Valuation != nil && asOf.Before(summary.Valuation.AsOf) {
		return
	}
	summary.Valuation = &models.ValuationEstimate{Amount: amount, Kind: kind, AsOf: asOf}
}
