package discovery

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/imadgeboyega/kiekky-discovery/internal/auth"
	"github.com/imadgeboyega/kiekky-discovery/internal/common/utils"
)

type Handler struct {
	service      Service
	defaultLimit int
	maxLimit     int
}

func NewHandler(service Service, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		service:      service,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// GetFeed serves GET /discovery/feed?limit&cursor&exclude
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	excludeIDs, err := parseExcludeIDs(r.URL.Query().Get("exclude"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid exclude list")
		return
	}

	page, err := h.service.GetDiscoveryFeed(r.Context(), userID, limit, r.URL.Query().Get("cursor"), excludeIDs)
	if err != nil {
		if err == ErrInvalidCursor {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to build discovery feed")
		return
	}

	utils.RespondWithData(w, http.StatusOK, page)
}

// parseExcludeIDs parses a comma-separated id list from the query string
func parseExcludeIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
