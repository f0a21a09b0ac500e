package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/services"
	"github.com/opencaptable/captable/backend/src/utils"
)

type CapTableHandler struct {
	capTableService services.CapTableService
	emailService    services.EmailService
}

func NewCapTableHandler(capTableService services.CapTableService, emailService services.EmailService) *CapTableHandler {
	return &CapTableHandler{
		capTableService: capTableService,
		emailService:    emailService,
	}
}

// HandleGetCapTable serves the full normalized cap table with ETag support.
func (h *CapTableHandler) HandleGetCapTable(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}
	logger.L.Debug("Handling GetCapTable request with ETag support", "issuerID", issuerID)

	view, err := h.capTableService.GetCapTable(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving cap table from service", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving cap table for issuer %s: %v", issuerID, err), http.StatusInternalServerError)
		return
	}

	currentETag, etagErr := utils.GenerateETag(view)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for cap table", "issuerID", issuerID, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Info("ETag match for cap table", "issuerID", issuerID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.WriteJSON(w, http.StatusOK, view)
}

// HandleGetHolder serves one stakeholder's position within the cap table.
func (h *CapTableHandler) HandleGetHolder(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}
	stakeholderID := r.PathValue("stakeholderID")
	if stakeholderID == "" {
		utils.SendJSONError(w, "stakeholder ID is required", http.StatusBadRequest)
		return
	}

	holder, err := h.capTableService.GetHolder(issuerID, stakeholderID)
	if err != nil {
		if errors.Is(err, services.ErrHolderNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("No holdings found for stakeholder %s", stakeholderID), http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving holder from service", "issuerID", issuerID, "stakeholderID", stakeholderID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, holder)
}

// HandleGetVoting serves the voting-power breakdown of the cap table.
func (h *CapTableHandler) HandleGetVoting(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	view, err := h.capTableService.GetCapTable(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving cap table for voting view", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	type holderVoting struct {
		StakeholderID string      `json:"stakeholder_id"`
		Name          string      `json:"name"`
		Voting        interface{} `json:"voting"`
	}
	holders := make([]holderVoting, 0, len(view.Holders))
	for id, holder := range view.Holders {
		holders = append(holders, holderVoting{StakeholderID: id, Name: holder.Name, Voting: holder.Voting})
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"voting_totals": view.VotingTotals,
		"holders":       holders,
	})
}

type emailReportRequest struct {
	ToEmail string `json:"to_email"`
}

// HandleEmailReport renders the current cap table and emails it.
func (h *CapTableHandler) HandleEmailReport(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}

	var req emailReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.ToEmail == "" || !strings.Contains(req.ToEmail, "@") {
		utils.SendJSONError(w, "A valid to_email is required", http.StatusBadRequest)
		return
	}

	issuer, err := h.capTableService.GetIssuer(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving issuer for email report", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	view, err := h.capTableService.GetCapTable(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving cap table for email report", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	summary, err := h.capTableService.GetDashboard(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving dashboard for email report", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendCapTableReport(req.ToEmail, *issuer, view, summary); err != nil {
		logger.L.Error("Failed to send cap table report", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, "Failed to send report email", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent", "to": req.ToEmail})
}
