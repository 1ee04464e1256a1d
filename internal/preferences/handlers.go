package preferences

import (
	"net/http"

	"github.com/imadgeboyega/kiekky-discovery/internal/auth"
	"github.com/imadgeboyega/kiekky-discovery/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMyPreferences is the self-service transparency view: users can see
// what the engine has learned about them. Own data only.
func (h *Handler) GetMyPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	pref, exists, err := h.service.GetLearnedPreference(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get preferences")
		return
	}

	if !exists {
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"learned": false,
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"learned":    true,
		"preference": pref,
	})
}
