package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/services"
	"github.com/opencaptable/captable/backend/src/utils"
)

type DashboardHandler struct {
	capTableService services.CapTableService
}

func NewDashboardHandler(capTableService services.CapTableService) *DashboardHandler {
	return &DashboardHandler{capTableService: capTableService}
}

// HandleGetDashboard serves issuer-level summary scalars.
func (h *DashboardHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	issuerID, ok := GetIssuerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or issuer ID not found in context", http.StatusUnauthorized)
		return
	}
	logger.L.Debug("Handling GetDashboard request", "issuerID", issuerID)

	summary, err := h.capTableService.GetDashboard(issuerID)
	if err != nil {
		logger.L.Error("Error retrieving dashboard summary from service", "issuerID", issuerID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving dashboard for issuer %s: %v", issuerID, err), http.StatusInternalServerError)
		return
	}

	currentETag, etagErr := utils.GenerateETag(summary)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for dashboard", "issuerID", issuerID, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Info("ETag match for dashboard", "issuerID", issuerID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.WriteJSON(w, http.StatusOK, summary)
}
