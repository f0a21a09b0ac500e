package processors

import (
	"fmt"

	"github.com/opencaptable/captable/backend/src/models"
)

// WarrantClassificationMode resolves a known ambiguity in historical data:
// whether a warrant without a specific target stock class is accounted as a
// warrant or folded into the convertibles bucket. The rule is a product
// decision, so it is configuration rather than a hard-coded branch.
type WarrantClassificationMode string

const (
	ClassifyAsWarrant     WarrantClassificationMode = "warrant"
	ClassifyAsConvertible WarrantClassificationMode = "convertible"
)

// ParseWarrantClassification maps a config string to a mode, defaulting to
// ClassifyAsWarrant for unknown values.
func ParseWarrantClassification(s string) (WarrantClassificationMode, error) {
	switch WarrantClassificationMode(s) {
	case ClassifyAsWarrant, "":
		return ClassifyAsWarrant, nil
	case ClassifyAsConvertible:
		return ClassifyAsConvertible, nil
	}
	return ClassifyAsWarrant, fmt.Errorf("unknown warrant classification mode %q", s)
}

// ReplayOptions tune engine behavior for one replay.
type ReplayOptions struct {
	WarrantClassification WarrantClassificationMode
}

// StockProcessor applies stock issuances, cancellations, and transfers.
type StockProcessor interface {
	Process(state *CapTableState, tx models.Transaction, res *EntityResolver)
}

// EquityCompProcessor applies equity compensation grants and exercises.
type EquityCompProcessor interface {
	Process(state *CapTableState, tx models.Transaction, res *EntityResolver)
}

// ConvertibleProcessor applies convertible issuances.
type ConvertibleProcessor interface {
	Process(state *CapTableState, tx models.Transaction, res *EntityResolver)
}

// WarrantProcessor applies warrant issuances, exercises, and cancellations.
type WarrantProcessor interface {
	Process(state *CapTableState, tx models.Transaction, res *EntityResolver)
}
