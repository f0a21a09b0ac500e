package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/security"
	"github.com/opencaptable/captable/backend/src/services"
	"github.com/opencaptable/captable/backend/src/utils"
)

type AuthHandler struct {
	authService     *security.AuthService
	capTableService services.CapTableService
}

func NewAuthHandler(authService *security.AuthService, capTableService services.CapTableService) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		capTableService: capTableService,
	}
}

type tokenRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleToken exchanges issuer API credentials for a short-lived bearer token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.APIKey == "" || req.APISecret == "" {
		utils.SendJSONError(w, "api_key and api_secret are required", http.StatusBadRequest)
		return
	}

	issuer, err := h.capTableService.GetIssuerByAPIKey(req.APIKey)
	if err != nil {
		if errors.Is(err, services.ErrIssuerNotFound) {
			logger.L.Warn("Token request for unknown API key")
			utils.SendJSONError(w, "Invalid API credentials", http.StatusUnauthorized)
			return
		}
		logger.L.Error("Error looking up issuer by API key", "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	if err := h.authService.CompareHashAndSecret(issuer.APISecretHash, req.APISecret); err != nil {
		logger.L.Warn("Token request with wrong API secret", "issuerID", issuer.ID)
		utils.SendJSONError(w, "Invalid API credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(issuer.ID)
	if err != nil {
		logger.L.Error("Failed to generate access token", "issuerID", issuer.ID, "error", err)
		utils.SendJSONError(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Issued access token", "issuerID", issuer.ID)
	utils.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.authService.TokenExpiry.Seconds()),
	})
}
