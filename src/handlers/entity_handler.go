package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/models"
	"github.com/opencaptable/captable/backend/src/security"
	"github.com/opencaptable/captable/backend/src/services"
	"github.com/opencaptable/captable/backend/src/utils"
	"github.com/shopspring/decimal"
)

// EntityHandler manages the reference entities replay resolves against:
// stakeholders, stock classes, and stock plans, plus issuer registration.
type EntityHandler struct {
	capTableService services.CapTableService
	authService     *security.AuthService
}

func NewEntityHandler(capTableService services.CapTableService, authService *security.AuthService) *EntityHandler {
	return &EntityHandler{
		capTableService: capTableService,
		authService:     authService,
	}
}

type createIssuerRequest struct {
	LegalName        string `json:"legal_name"`
	SharesAuthorized string `json:"shares_authorized,omitempty"`
}

type createIssuerResponse struct {
	Issuer    *models.Issuer `json:"issuer"`
	APIKey    string         `json:"api_key"`
	APISecret string         `json:"api_secret"` // shown once, only the hash is stored
}

// HandleCreateIssuer registers a new issuer and returns its API credentials.
func (h *EntityHandler) HandleCreateIssuer(w http.ResponseWriter, r *http.Request) {
	var req createIssuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.LegalName == "" {
		utils.SendJSONError(w, "legal_name is required", http.StatusBadRequest)
		return
	}

	apiKey, apiSecret, err := security.GenerateAPICredentials()
	if err != nil {
		logger.L.Error("Failed to generate API credentials", "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	secretHash, err := h.authService.HashAPISecret(apiSecret)
	if err != nil {
		logger.L.Error("Failed to hash API secret", "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	issuer := &models.Issuer{
		LegalName:     req.LegalName,
		APIKey:        apiKey,
		APISecretHash: secretHash,
	}
	if req.SharesAuthorized != "" {
		authorized, err := decimal.NewFromString(req.SharesAuthorized)
		if err != nil {
			utils.SendJSONError(w, "shares_authorized must be a decimal number", http.StatusBadRequest)
			return
		}
		issuer.SharesAuthorized = authorized
	}

	if err := h.capTableService.CreateIssuer(issuer); err != nil {
		logger.L.Error("Failed to create issuer", "legalName", req.LegalName, "error", err)
		utils.SendJSONError(w, "Failed to create issuer", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Issuer created", "issuerID", issuer.ID, "legalName", issuer.LegalName)
	utils.WriteJSON(w, http.StatusCreated, createIssuerResponse{
		Issuer:    issuer,
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
}

func (h *EntityHandler) HandleCreateStakeholder(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	var stakeholder models.Stakeholder
	if err := json.NewDecoder(r.Body).Decode(&stakeholder); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.capTableService.CreateStakeholder(issuerID, &stakeholder); err != nil {
		if errors.Is(err, services.ErrInvalidEntity) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Failed to create stakeholder", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "Failed to create stakeholder", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, stakeholder)
}

func (h *EntityHandler) HandleListStakeholders(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	stakeholders, err := h.capTableService.ListStakeholders(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving stakeholders", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	if stakeholders == nil {
		stakeholders = []models.Stakeholder{}
	}

	utils.WriteJSON(w, http.StatusOK, stakeholders)
}

func (h *EntityHandler) HandleCreateStockClass(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	var class models.StockClass
	if err := json.NewDecoder(r.Body).Decode(&class); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.capTableService.CreateStockClass(issuerID, &class); err != nil {
		if errors.Is(err, services.ErrInvalidEntity) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Failed to create stock class", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "Failed to create stock class", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, class)
}

func (h *EntityHandler) HandleListStockClasses(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	classes, err := h.capTableService.ListStockClasses(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving stock classes", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	if classes == nil {
		classes = []models.StockClass{}
	}

	utils.WriteJSON(w, http.StatusOK, classes)
}

func (h *EntityHandler) HandleCreateStockPlan(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	var plan models.StockPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.capTableService.CreateStockPlan(issuerID, &plan); err != nil {
		if errors.Is(err, services.ErrInvalidEntity) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Failed to create stock plan", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "Failed to create stock plan", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, plan)
}

func (h *EntityHandler) HandleListStockPlans(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	plans, err := h.capTableService.ListStockPlans(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving stock plans", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	if plans == nil {
		plans = []models.StockPlan{}
	}

	utils.WriteJSON(w, http.StatusOK, plans)
}
