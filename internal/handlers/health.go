package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/response"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Handle implements GET /healthz. It reports 503 when the database does not
// answer a ping within two seconds.
func (h HealthHandler) Handle(w http.ResponseWriter, r Request) error {
	ctx := r.Context()
	status := healthStatus{Status: "ok", Database: "skipped"}

	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.DB.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Warn("health check database ping failed", "error", err)
			status = healthStatus{Status: "degraded", Database: "unreachable"}
			response.JSON(ctx, w, http.StatusServiceUnavailable, status, "Service degraded")
			return nil
		}
		status.Database = "ok"
	}

	response.OK(ctx, w, status, "Service healthy")
	return nil
}
