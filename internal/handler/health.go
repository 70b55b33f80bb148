package handler

import (
	"encoding/json"
	"net/http"

	"github.com/futsalhub/platform/internal/infra"
)

// HubStats reports live websocket load.
type HubStats interface {
	ConnectionCount() int
	RoomCount() int
}

// HealthHandler returns a health check endpoint.
func HealthHandler(db infra.Pinger, hub HubStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := infra.HealthCheck(r.Context(), db)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         "healthy",
			"ws_connections": hub.ConnectionCount(),
			"ws_rooms":       hub.RoomCount(),
		})
	}
}
