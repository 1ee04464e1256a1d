package discovery

import (
	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-discovery/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/discovery/feed", handler.GetFeed).Methods("GET")
}
