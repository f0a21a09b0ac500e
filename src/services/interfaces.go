package services

import (
	"errors"

	"github.com/opencaptable/captable/backend/src/models"
	"github.com/opencaptable/captable/backend/src/processors"
)

var (
	ErrIssuerNotFound = errors.New("issuer not found")
	ErrHolderNotFound = errors.New("holder not found")
	ErrNoTransactions = errors.New("transaction batch is empty")
	ErrBatchTooLarge  = errors.New("transaction batch exceeds the configured maximum")
	ErrInvalidEntity  = errors.New("invalid entity payload")
)

// IngestResult reports what happened to one submitted batch.
type IngestResult struct {
	Accepted   int                         `json:"accepted"`
	Duplicates int                         `json:"duplicates"`
	Warnings   []processors.ReferenceCheck `json:"warnings,omitempty"`
}

// CapTableService is the core application service: it owns persistence of the
// transaction log and reference entities, replays on demand, and caches the
// resulting views.
type CapTableService interface {
	IngestTransactions(issuerID string, txs []models.Transaction) (*IngestResult, error)
	ListTransactions(issuerID string) ([]models.Transaction, error)

	GetCapTable(issuerID string) (*models.CapTableView, error)
	GetHolder(issuerID, stakeholderID string) (*models.HolderState, error)
	GetDashboard(issuerID string) (*models.DashboardSummary, error)

	CreateIssuer(issuer *models.Issuer) error
	GetIssuer(issuerID string) (*models.Issuer, error)
	GetIssuerByAPIKey(apiKey string) (*models.Issuer, error)

	CreateStakeholder(issuerID string, stakeholder *models.Stakeholder) error
	ListStakeholders(issuerID string) ([]models.Stakeholder, error)
	CreateStockClass(issuerID string, class *models.StockClass) error
	ListStockClasses(issuerID string) ([]models.StockClass, error)
	CreateStockPlan(issuerID string, plan *models.StockPlan) error
	ListStockPlans(issuerID string) ([]models.StockPlan, error)

	InvalidateIssuerCache(issuerID string)
}

// EmailService sends outbound cap-table reports.
type EmailService interface {
	SendCapTableReport(toEmail string, issuer models.Issuer, view *models.CapTableView, summary *models.DashboardSummary) error
}
