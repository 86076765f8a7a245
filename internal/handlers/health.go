package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, dbStatus, code := "ok", "ok", http.StatusOK
	if h.db == nil {
		dbStatus = "disabled"
	} else if err := h.db.Ping(ctx); err != nil {
		status, dbStatus, code = "degraded", "error", http.StatusServiceUnavailable
		h.log.Error().Err(err).Msg("database ping failed")
	}

	c.JSON(code, healthResponse{
		Status:      status,
		Database:    dbStatus,
		Environment: h.cfg.Environment,
	})
}
