package processors

import (
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/shopspring/decimal"
)

// securityRecord tracks one issued stock security so that later
// cancellations and transfers can resolve it by security id.
type securityRecord struct {
	stakeholderID string
	stockClassID  string
	classKey      string
	outstanding   decimal.Decimal
	sharePrice    decimal.Decimal
}

// grantRecord locates an equity compensation grant inside a holder's plan
// buckets. Indexes are stable because positions are append-only.
type grantRecord struct {
	stakeholderID string
	classKey      string
	planAward     bool
	index         int
}

// warrantRecord locates a warrant position inside a holder's warrant list.
type warrantRecord struct {
	stakeholderID string
	classKey      string
	index         int
}

// CapTableState is the mutable state of one replay. It is created fresh per
// invocation, mutated in place by the family processors, and never shared
// across replays.
type CapTableState struct {
	Holders map[string]*models.HolderState

	securities map[string]*securityRecord
	grants     map[string]grantRecord
	warrants   map[string]warrantRecord

	planReserved     map[string]decimal.Decimal // plan id -> reserved pool, as adjusted
	grantIssued      decimal.Decimal            // running total of grant quantities
	issuerAuthorized decimal.Decimal
	classAuthorized  map[string]decimal.Decimal // class id -> authorized, as adjusted

	opts ReplayOptions
}

func newCapTableState(opts ReplayOptions) *CapTableState {
	return &CapTableState{
		Holders:         make(map[string]*models.HolderState),
		securities:      make(map[string]*securityRecord),
		grants:          make(map[string]grantRecord),
		warrants:        make(map[string]warrantRecord),
		planReserved:    make(map[string]decimal.Decimal),
		classAuthorized: make(map[string]decimal.Decimal),
		opts:            opts,
	}
}

// holder returns the stakeholder's derived state, creating it on first use.
func (s *CapTableState) holder(stakeholderID string, res *EntityResolver) *models.HolderState {
	if h, ok := s.Holders[stakeholderID]; ok {
		return h
	}
	h := &models.HolderState{
		StakeholderID: stakeholderID,
		ByClass:       make(map[string]*models.ClassHolding),
	}
	if sh, ok := res.Stakeholder(stakeholderID); ok {
		h.Name = sh.LegalName
		h.Relationship = sh.Relationship
	}
	s.Holders[stakeholderID] = h
	return h
}

// classHolding returns the holder's position for a category key, creating it
// on first use.
func (s *CapTableState) classHolding(h *models.HolderState, key, holdingType string, classType models.StockClassType) *models.ClassHolding {
	if ch, ok := h.ByClass[key]; ok {
		return ch
	}
	ch := &models.ClassHolding{Type: holdingType, ClassType: classType}
	h.ByClass[key] = ch
	return ch
}

// grantPosition returns the grant position a grantRecord points at.
func (s *CapTableState) grantPosition(rec grantRecord) *models.GrantPosition {
	h, ok := s.Holders[rec.stakeholderID]
	if !ok {
		return nil
	}
	bucket := h.Plans.NonPlan
	if rec.planAward {
		bucket = h.Plans.StockPlan
	}
	if rec.index < 0 || rec.index >= len(bucket) {
		return nil
	}
	return &bucket[rec.index]
}

// warrantPosition returns the warrant position a warrantRecord points at.
func (s *CapTableState) warrantPosition(rec warrantRecord) *models.WarrantPosition {
	h, ok := s.Holders[rec.stakeholderID]
	if !ok {
		return nil
	}
	if rec.index < 0 || rec.index >= len(h.Warrants) {
		return nil
	}
	return &h.Warrants[rec.index]
}
