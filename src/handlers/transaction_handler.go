package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/opencaptable/captable/backend/src/services"
	"github.com/opencaptable/captable/backend/src/utils"
)

type TransactionHandler struct {
	capTableService services.CapTableService
}

func NewTransactionHandler(capTableService services.CapTableService) *TransactionHandler {
	return &TransactionHandler{capTableService: capTableService}
}

// HandleIngest appends a batch of transactions to the issuer's log.
// Duplicates are reported, not rejected; unresolvable references come back
// as warnings because replay will skip them.
func (h *TransactionHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	var txs []models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&txs); err != nil {
		logger.L.Warn("Failed to decode transaction batch", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Invalid transaction batch payload: %v", err), http.StatusBadRequest)
		return
	}

	for i, tx := range txs {
		if tx.Type == "" {
			utils.SendJSONError(w, fmt.Sprintf("Transaction at index %d is missing type", i), http.StatusBadRequest)
			return
		}
		if tx.Date == "" {
			utils.SendJSONError(w, fmt.Sprintf("Transaction at index %d is missing date", i), http.StatusBadRequest)
			return
		}
		if utils.ParseDate(tx.Date).IsZero() {
			utils.SendJSONError(w, fmt.Sprintf("Transaction at index %d has invalid date %q, expected YYYY-MM-DD", i, tx.Date), http.StatusBadRequest)
			return
		}
	}

	result, err := h.capTableService.IngestTransactions(issuerID, txs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoTransactions):
			utils.SendJSONError(w, "Transaction batch is empty", http.StatusBadRequest)
		case errors.Is(err, services.ErrBatchTooLarge):
			utils.SendJSONError(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, services.ErrIssuerNotFound):
			utils.SendJSONError(w, "Issuer not found", http.StatusNotFound)
		default:
			logger.L.Error("Internal error ingesting transactions", "issuerID", issuerID, "error", err)
			utils.SendJSONError(w, "An internal error occurred while ingesting transactions", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, result)
}

// HandleListTransactions serves the stored log in replay order.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	txs, err := h.capTableService.ListTransactions(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving transactions", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving transactions for issuer %s: %v", issuerID, err), http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	utils.WriteJSON(w, http.StatusOK, txs)
}
