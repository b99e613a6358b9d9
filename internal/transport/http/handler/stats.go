package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docsort/internal/model"
	"docsort/internal/transport/http/middleware"
	"docsort/internal/transport/http/response"
)

// StatsSource is satisfied by cache.PredictionStats.
type StatsSource interface {
	Snapshot(ctx context.Context) (*model.PredictionStats, error)
}

type StatsHandler struct {
	stats  StatsSource
	logger *zap.Logger
}

// NewStatsHandler accepts a nil source; the route then answers 404.
func NewStatsHandler(stats StatsSource, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{stats: stats, logger: logger}
}

func (h *StatsHandler) Get(c *gin.Context) {
	if h.stats == nil {
		response.Error(c, http.StatusNotFound, "stats are disabled")
		return
	}
	snapshot, err := h.stats.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("read prediction stats failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		response.Error(c, http.StatusServiceUnavailable, "stats unavailable")
		return
	}
	response.OK(c, snapshot)
}
