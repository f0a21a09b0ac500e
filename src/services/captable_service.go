package services

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencaptable/captable/backend/src/database"
	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/opencaptable/captable/backend/src/processors"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	// Long-lived caches for full replay results
	ckCapTableView = "res_captable_issuer_%s"

	// Short-lived, aggregate cache
	ckDashboardSummary = "agg_dashboard_issuer_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type capTableServiceImpl struct {
	capTableProcessor  *processors.CapTableProcessor
	dashboardProcessor *processors.DashboardProcessor
	reportCache        *cache.Cache
	maxIngestBatch     int
}

func NewCapTableService(
	capTableProcessor *processors.CapTableProcessor,
	dashboardProcessor *processors.DashboardProcessor,
	reportCache *cache.Cache,
	maxIngestBatch int,
) CapTableService {
	return &capTableServiceImpl{
		capTableProcessor:  capTableProcessor,
		dashboardProcessor: dashboardProcessor,
		reportCache:        reportCache,
		maxIngestBatch:     maxIngestBatch,
	}
}

// txTriggers is the JSON envelope stored in the triggers column.
type txTriggers struct {
	Conversion []models.ConversionTrigger `json:"conversion_triggers,omitempty"`
	Exercise   []models.ConversionTrigger `json:"exercise_triggers,omitempty"`
}

// computeHashID derives the dedup key for a transaction. Two submissions of
// the same economic event collapse onto one row via UNIQUE(issuer_id, hash_id).
func computeHashID(issuerID string, tx models.Transaction) string {
	input := strings.Join([]string{
		issuerID,
		string(tx.Type),
		tx.Date,
		tx.SecurityID,
		tx.SecurityIDRef,
		tx.StakeholderID,
		tx.FromStakeholderID,
		tx.ToStakeholderID,
		tx.StockClassID,
		tx.StockPlanID,
		tx.Quantity.String(),
		tx.SharePrice.String(),
		tx.ExercisePrice.String(),
		tx.PurchasePrice.String(),
		tx.InvestmentAmount.String(),
		tx.Currency,
		tx.NewSharesAuthorized.String(),
		tx.NewSharesReserved.String(),
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func (s *capTableServiceImpl) IngestTransactions(issuerID string, txs []models.Transaction) (*IngestResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("IngestTransactions START", "issuerID", issuerID, "batchSize", len(txs))

	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}
	if s.maxIngestBatch > 0 && len(txs) > s.maxIngestBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(txs), s.maxIngestBatch)
	}
	if _, err := s.GetIssuer(issuerID); err != nil {
		return nil, err
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO captable_transactions (id, issuer_id, security_id, tx_type, date, stakeholder_id, stock_class_id, stock_plan_id, security_id_ref, from_stakeholder_id, to_stakeholder_id, quantity, share_price, exercise_price, purchase_price, investment_amount, currency, issuance_type, compensation_type, convertible_type, reason, resulting_security_ids, vesting_schedule_id, expiration_date, new_shares_authorized, new_shares_reserved, triggers, hash_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	result := &IngestResult{}
	batchIDs := make(map[string]bool, len(txs))
	now := time.Now().UTC()

	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if tx.HashID == "" {
			tx.HashID = computeHashID(issuerID, tx)
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}

		triggersJSON, err := json.Marshal(txTriggers{Conversion: tx.ConversionTriggers, Exercise: tx.ExerciseTriggers})
		if err != nil {
			return nil, fmt.Errorf("error encoding triggers for transaction %s: %w", tx.ID, err)
		}
		resultingJSON, err := json.Marshal(tx.ResultingSecurityIDs)
		if err != nil {
			return nil, fmt.Errorf("error encoding resulting security ids for transaction %s: %w", tx.ID, err)
		}
		var expiration string
		if tx.ExpirationDate != nil {
			expiration = tx.ExpirationDate.Format(time.RFC3339Nano)
		}

		_, err = stmt.Exec(
			tx.ID, issuerID, tx.SecurityID, string(tx.Type), tx.Date,
			tx.StakeholderID, tx.StockClassID, tx.StockPlanID, tx.SecurityIDRef,
			tx.FromStakeholderID, tx.ToStakeholderID,
			tx.Quantity.String(), tx.SharePrice.String(), tx.ExercisePrice.String(),
			tx.PurchasePrice.String(), tx.InvestmentAmount.String(), tx.Currency,
			tx.IssuanceType, tx.CompensationType, string(tx.ConvertibleType), tx.Reason,
			string(resultingJSON), tx.VestingScheduleID, expiration,
			tx.NewSharesAuthorized.String(), tx.NewSharesReserved.String(),
			string(triggersJSON), tx.HashID, tx.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on ingest", "issuerID", issuerID, "hash_id", tx.HashID)
				result.Duplicates++
				continue
			}
			return nil, fmt.Errorf("error inserting transaction (ID: %s): %w", tx.ID, err)
		}
		result.Accepted++
		batchIDs[tx.ID] = true
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}

	// The next read triggers a full, correct recalculation.
	s.InvalidateIssuerCache(issuerID)

	// Reference warnings are computed against the full stored log so a batch
	// referencing a security issued in an earlier batch does not warn.
	allTxs, err := fetchIssuerTransactions(issuerID)
	if err != nil {
		return nil, err
	}
	for _, check := range processors.ValidateReferences(allTxs) {
		if !check.OK && batchIDs[check.TransactionID] {
			result.Warnings = append(result.Warnings, check)
		}
	}

	logger.L.Info("IngestTransactions END", "issuerID", issuerID,
		"accepted", result.Accepted, "duplicates", result.Duplicates,
		"warnings", len(result.Warnings), "duration", time.Since(overallStartTime))
	return result, nil
}

func (s *capTableServiceImpl) ListTransactions(issuerID string) ([]models.Transaction, error) {
	return fetchIssuerTransactions(issuerID)
}

func (s *capTableServiceImpl) GetCapTable(issuerID string) (*models.CapTableView, error) {
	cacheKey := fmt.Sprintf(ckCapTableView, issuerID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for GetCapTable", "issuerID", issuerID)
		return cached.(*models.CapTableView), nil
	}
	logger.L.Info("Cache miss for cap table, replaying from DB", "issuerID", issuerID)

	txs, err := fetchIssuerTransactions(issuerID)
	if err != nil {
		return nil, err
	}
	stakeholders, err := fetchStakeholders(issuerID)
	if err != nil {
		return nil, err
	}
	stockClasses, err := fetchStockClasses(issuerID)
	if err != nil {
		return nil, err
	}
	stockPlans, err := fetchStockPlans(issuerID)
	if err != nil {
		return nil, err
	}

	for _, check := range processors.ValidateReferences(txs) {
		if !check.OK {
			logger.L.Warn("Unresolvable reference in transaction log, replay will skip it",
				"issuerID", issuerID, "transactionID", check.TransactionID,
				"type", check.Type, "reason", check.Reason)
		}
	}

	view := s.capTableProcessor.Process(txs, stakeholders, stockClasses, stockPlans)

	for stakeholderID, holder := range view.Holders {
		for classKey, ch := range holder.ByClass {
			if ch.ClampedQuantity.IsPositive() {
				logger.L.Warn("Cancellation exceeded outstanding shares, excess was clamped",
					"issuerID", issuerID, "stakeholderID", stakeholderID,
					"class", classKey, "clampedQuantity", ch.ClampedQuantity)
			}
		}
	}

	s.reportCache.Set(cacheKey, view, cache.NoExpiration)
	logger.L.Info("Populated cap table cache from DB", "issuerID", issuerID,
		"holders", len(view.Holders), "transactionCount", len(txs))
	return view, nil
}

func (s *capTableServiceImpl) GetHolder(issuerID, stakeholderID string) (*models.HolderState, error) {
	view, err := s.GetCapTable(issuerID)
	if err != nil {
		return nil, err
	}
	holder, ok := view.Holders[stakeholderID]
	if !ok {
		return nil, ErrHolderNotFound
	}
	return holder, nil
}

func (s *capTableServiceImpl) GetDashboard(issuerID string) (*models.DashboardSummary, error) {
	cacheKey := fmt.Sprintf(ckDashboardSummary, issuerID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for GetDashboard", "issuerID", issuerID)
		return cached.(*models.DashboardSummary), nil
	}

	issuer, err := s.GetIssuer(issuerID)
	if err != nil {
		return nil, err
	}
	txs, err := fetchIssuerTransactions(issuerID)
	if err != nil {
		return nil, err
	}
	stakeholders, err := fetchStakeholders(issuerID)
	if err != nil {
		return nil, err
	}

	summary := s.dashboardProcessor.Process(txs, stakeholders, *issuer)

	s.reportCache.Set(cacheKey, summary, DefaultCacheExpiration)
	return summary, nil
}

// InvalidateIssuerCache clears all cached views for an issuer, forcing a
// complete replay on the next request.
func (s *capTableServiceImpl) InvalidateIssuerCache(issuerID string) {
	keysToDelete := []string{
		fmt.Sprintf(ckCapTableView, issuerID),
		fmt.Sprintf(ckDashboardSummary, issuerID),
	}
	for _, key := range keysToDelete {
		s.reportCache.Delete(key)
	}
	logger.L.Info("Invalidated all caches for issuer", "issuerID", issuerID)
}

func (s *capTableServiceImpl) CreateIssuer(issuer *models.Issuer) error {
	if issuer.LegalName == "" || issuer.APIKey == "" || issuer.APISecretHash == "" {
		return fmt.Errorf("%w: issuer requires legal_name and API credentials", ErrInvalidEntity)
	}
	if issuer.ID == "" {
		issuer.ID = uuid.NewString()
	}
	issuer.CreatedAt = time.Now().UTC()

	_, err := database.DB.Exec(
		`INSERT INTO issuers (id, legal_name, shares_authorized, api_key, api_secret_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		issuer.ID, issuer.LegalName, issuer.SharesAuthorized.String(),
		issuer.APIKey, issuer.APISecretHash, issuer.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error inserting issuer: %w", err)
	}
	return nil
}

func (s *capTableServiceImpl) GetIssuer(issuerID string) (*models.Issuer, error) {
	return scanIssuer(database.DB.QueryRow(
		`SELECT id, legal_name, shares_authorized, api_key, api_secret_hash, created_at FROM issuers WHERE id = ?`, issuerID))
}

func (s *capTableServiceImpl) GetIssuerByAPIKey(apiKey string) (*models.Issuer, error) {
	return scanIssuer(database.DB.QueryRow(
		`SELECT id, legal_name, shares_authorized, api_key, api_secret_hash, created_at FROM issuers WHERE api_key = ?`, apiKey))
}

func scanIssuer(row *sql.Row) (*models.Issuer, error) {
	var issuer models.Issuer
	var createdAt sql.NullString
	err := row.Scan(&issuer.ID, &issuer.LegalName, &issuer.SharesAuthorized,
		&issuer.APIKey, &issuer.APISecretHash, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrIssuerNotFound
		}
		return nil, fmt.Errorf("error scanning issuer row: %w", err)
	}
	issuer.CreatedAt = parseStoredTime(createdAt)
	return &issuer, nil
}

func (s *capTableServiceImpl) CreateStakeholder(issuerID string, stakeholder *models.Stakeholder) error {
	if stakeholder.LegalName == "" {
		return fmt.Errorf("%w: stakeholder requires legal_name", ErrInvalidEntity)
	}
	if stakeholder.ID == "" {
		stakeholder.ID = uuid.NewString()
	}
	if stakeholder.Relationship == "" {
		stakeholder.Relationship = models.RelationshipOther
	}
	stakeholder.IssuerID = issuerID
	stakeholder.CreatedAt = time.Now().UTC()

	_, err := database.DB.Exec(
		`INSERT INTO stakeholders (id, issuer_id, legal_name, relationship, created_at) VALUES (?, ?, ?, ?, ?)`,
		stakeholder.ID, issuerID, stakeholder.LegalName, string(stakeholder.Relationship),
		stakeholder.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error inserting stakeholder: %w", err)
	}
	s.InvalidateIssuerCache(issuerID)
	return nil
}

func (s *capTableServiceImpl) ListStakeholders(issuerID string) ([]models.Stakeholder, error) {
	return fetchStakeholders(issuerID)
}

func (s *capTableServiceImpl) CreateStockClass(issuerID string, class *models.StockClass) error {
	if class.Name == "" {
		return fmt.Errorf("%w: stock class requires name", ErrInvalidEntity)
	}
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.ClassType == "" {
		class.ClassType = models.StockClassCommon
	}
	if class.VotesPerShare.IsZero() && class.ClassType == models.StockClassCommon {
		class.VotesPerShare = decimal.NewFromInt(1)
	}
	class.IssuerID = issuerID
	class.CreatedAt = time.Now().UTC()

	rightsJSON, err := json.Marshal(class.ConversionRights)
	if err != nil {
		return fmt.Errorf("error encoding conversion rights: %w", err)
	}
	_, err = database.DB.Exec(
		`INSERT INTO stock_classes (id, issuer_id, name, class_type, votes_per_share, shares_authorized, conversion_rights, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		class.ID, issuerID, class.Name, string(class.ClassType),
		class.VotesPerShare.String(), class.SharesAuthorized.String(),
		string(rightsJSON), class.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error inserting stock class: %w", err)
	}
	s.InvalidateIssuerCache(issuerID)
	return nil
}

func (s *capTableServiceImpl) ListStockClasses(issuerID string) ([]models.StockClass, error) {
	return fetchStockClasses(issuerID)
}

func (s *capTableServiceImpl) CreateStockPlan(issuerID string, plan *models.StockPlan) error {
	if plan.PlanName == "" {
		return fmt.Errorf("%w: stock plan requires plan_name", ErrInvalidEntity)
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.IssuerID = issuerID
	plan.CreatedAt = time.Now().UTC()

	classIDsJSON, err := json.Marshal(plan.StockClassIDs)
	if err != nil {
		return fmt.Errorf("error encoding stock class ids: %w", err)
	}
	_, err = database.DB.Exec(
		`INSERT INTO stock_plans (id, issuer_id, plan_name, initial_shares_reserved, stock_class_ids, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, issuerID, plan.PlanName, plan.InitialSharesReserved.String(),
		string(classIDsJSON), plan.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error inserting stock plan: %w", err)
	}
	s.InvalidateIssuerCache(issuerID)
	return nil
}

func (s *capTableServiceImpl) ListStockPlans(issuerID string) ([]models.StockPlan, error) {
	return fetchStockPlans(issuerID)
}

// fetchIssuerTransactions reads the full log for an issuer in replay order.
func fetchIssuerTransactions(issuerID string) ([]models.Transaction, error) {
	logger.L.Debug("Fetching transactions from DB", "issuerID", issuerID)
	rows, err := database.DB.Query(`SELECT id, security_id, tx_type, date, COALESCE(stakeholder_id,''), COALESCE(stock_class_id,''), COALESCE(stock_plan_id,''), COALESCE(security_id_ref,''), COALESCE(from_stakeholder_id,''), COALESCE(to_stakeholder_id,''), quantity, share_price, exercise_price, purchase_price, investment_amount, COALESCE(currency,''), COALESCE(issuance_type,''), COALESCE(compensation_type,''), COALESCE(convertible_type,''), COALESCE(reason,''), COALESCE(resulting_security_ids,''), COALESCE(vesting_schedule_id,''), COALESCE(expiration_date,''), new_shares_authorized, new_shares_reserved, COALESCE(triggers,''), COALESCE(hash_id,''), created_at FROM captable_transactions WHERE issuer_id = ? ORDER BY date ASC, created_at ASC, id ASC`, issuerID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for issuer %s: %w", issuerID, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var txType, convertibleType string
		var resultingJSON, expiration, triggersJSON string
		var createdAt sql.NullString

		scanErr := rows.Scan(&tx.ID, &tx.SecurityID, &txType, &tx.Date,
			&tx.StakeholderID, &tx.StockClassID, &tx.StockPlanID, &tx.SecurityIDRef,
			&tx.FromStakeholderID, &tx.ToStakeholderID,
			&tx.Quantity, &tx.SharePrice, &tx.ExercisePrice, &tx.PurchasePrice, &tx.InvestmentAmount,
			&tx.Currency, &tx.IssuanceType, &tx.CompensationType, &convertibleType, &tx.Reason,
			&resultingJSON, &tx.VestingScheduleID, &expiration,
			&tx.NewSharesAuthorized, &tx.NewSharesReserved,
			&triggersJSON, &tx.HashID, &createdAt)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning transaction row for issuer %s: %w", issuerID, scanErr)
		}

		tx.IssuerID = issuerID
		tx.Type = models.TransactionType(txType)
		tx.ConvertibleType = models.ConvertibleType(convertibleType)
		tx.CreatedAt = parseStoredTime(createdAt)

		if resultingJSON != "" && resultingJSON != "null" {
			if err := json.Unmarshal([]byte(resultingJSON), &tx.ResultingSecurityIDs); err != nil {
				logger.L.Warn("Skipping malformed resulting_security_ids payload", "transactionID", tx.ID, "error", err)
			}
		}
		if expiration != "" {
			if t, err := time.Parse(time.RFC3339Nano, expiration); err == nil {
				tx.ExpirationDate = &t
			}
		}
		if triggersJSON != "" && triggersJSON != "null" {
			var triggers txTriggers
			if err := json.Unmarshal([]byte(triggersJSON), &triggers); err != nil {
				logger.L.Warn("Skipping malformed triggers payload", "transactionID", tx.ID, "error", err)
			} else {
				tx.ConversionTriggers = triggers.Conversion
				tx.ExerciseTriggers = triggers.Exercise
			}
		}

		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for issuer %s: %w", issuerID, err)
	}
	logger.L.Info("DB fetch complete.", "issuerID", issuerID, "transactionCount", len(transactions))
	return transactions, nil
}

func fetchStakeholders(issuerID string) ([]models.Stakeholder, error) {
	rows, err := database.DB.Query(`SELECT id, legal_name, relationship, created_at FROM stakeholders WHERE issuer_id = ? ORDER BY created_at ASC, id ASC`, issuerID)
	if err != nil {
		return nil, fmt.Errorf("error querying stakeholders for issuer %s: %w", issuerID, err)
	}
	defer rows.Close()

	var stakeholders []models.Stakeholder
	for rows.Next() {
		var sh models.Stakeholder
		var relationship string
		var createdAt sql.NullString
		if err := rows.Scan(&sh.ID, &sh.LegalName, &relationship, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning stakeholder row for issuer %s: %w", issuerID, err)
		}
		sh.IssuerID = issuerID
		sh.Relationship = models.StakeholderRelationship(relationship)
		sh.CreatedAt = parseStoredTime(createdAt)
		stakeholders = append(stakeholders, sh)
	}
	return stakeholders, rows.Err()
}

func fetchStockClasses(issuerID string) ([]models.StockClass, error) {
	rows, err := database.DB.Query(`SELECT id, name, class_type, votes_per_share, shares_authorized, COALESCE(conversion_rights,''), created_at FROM stock_classes WHERE issuer_id = ? ORDER BY created_at ASC, id ASC`, issuerID)
	if err != nil {
		return nil, fmt.Errorf("error querying stock classes for issuer %s: %w", issuerID, err)
	}
	defer rows.Close()

	var classes []models.StockClass
	for rows.Next() {
		var class models.StockClass
		var classType, rightsJSON string
		var createdAt sql.NullString
		if err := rows.Scan(&class.ID, &class.Name, &classType, &class.VotesPerShare, &class.SharesAuthorized, &rightsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning stock class row for issuer %s: %w", issuerID, err)
		}
		class.IssuerID = issuerID
		class.ClassType = models.StockClassType(classType)
		class.CreatedAt = parseStoredTime(createdAt)
		if rightsJSON != "" && rightsJSON != "null" {
			if err := json.Unmarshal([]byte(rightsJSON), &class.ConversionRights); err != nil {
				logger.L.Warn("Skipping malformed conversion_rights payload", "stockClassID", class.ID, "error", err)
			}
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

func fetchStockPlans(issuerID string) ([]models.StockPlan, error) {
	rows, err := database.DB.Query(`SELECT id, plan_name, initial_shares_reserved, COALESCE(stock_class_ids,''), created_at FROM stock_plans WHERE issuer_id = ? ORDER BY created_at ASC, id ASC`, issuerID)
	if err != nil {
		return nil, fmt.Errorf("error querying stock plans for issuer %s: %w", issuerID, err)
	}
	defer rows.Close()

	var plans []models.StockPlan
	for rows.Next() {
		var plan models.StockPlan
		var classIDsJSON string
		var createdAt sql.NullString
		if err := rows.Scan(&plan.ID, &plan.PlanName, &plan.InitialSharesReserved, &classIDsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning stock plan row for issuer %s: %w", issuerID, err)
		}
		plan.IssuerID = issuerID
		plan.CreatedAt = parseStoredTime(createdAt)
		if classIDsJSON != "" && classIDsJSON != "null" {
			if err := json.Unmarshal([]byte(classIDsJSON), &plan.StockClassIDs); err != nil {
				logger.L.Warn("Skipping malformed stock_class_ids payload", "stockPlanID", plan.ID, "error", err)
			}
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func parseStoredTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, value.String); err == nil {
			return t
		}
	}
	return time.Time{}
}
