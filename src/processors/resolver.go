package processors

import (
	"github.com/opencaptable/captable/backend/src/models"
)

// EntityResolver indexes the caller-supplied reference entities by id for
// O(1) lookup during replay. Absence is reported with ok=false, never as an
// error: a transaction whose references do not resolve is skipped by the
// caller, not failed.
type EntityResolver struct {
	stakeholders map[string]models.Stakeholder
	stockClasses map[string]models.StockClass
	stockPlans   map[string]models.StockPlan
}

// NewEntityResolver builds the indexes once per replay.
func NewEntityResolver(stakeholders []models.Stakeholder, stockClasses []models.StockClass, stockPlans []models.StockPlan) *EntityResolver {
	r := &EntityResolver{
		stakeholders: make(map[string]models.Stakeholder, len(stakeholders)),
		stockClasses: make(map[string]models.StockClass, len(stockClasses)),
		stockPlans:   make(map[string]models.StockPlan, len(stockPlans)),
	}
	for _, s := range stakeholders {
		r.stakeholders[s.ID] = s
	}
	for _, c := range stockClasses {
		r.stockClasses[c.ID] = c
	}
	for _, p := range stockPlans {
		r.stockPlans[p.ID] = p
	}
	return r
}

func (r *EntityResolver) Stakeholder(id string) (models.Stakeholder, bool) {
	s, ok := r.stakeholders[id]
	return s, ok
}

func (r *EntityResolver) StockClass(id string) (models.StockClass, bool) {
	c, ok := r.stockClasses[id]
	return c, ok
}

func (r *EntityResolver) StockPlan(id string) (models.StockPlan, bool) {
	p, ok := r.stockPlans[id]
	return p, ok
}
