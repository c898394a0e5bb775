package handlers

import (
	"errors"
	"net/http"

	"traffic_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK       = "ok"
	statusStarted  = "started"
	statusStopped  = "stopped"
	statusAllRed   = "emergency_stopped"
	errStartFailed = "failed to start scheduler"
	errStopFailed  = "failed to stop scheduler"
)

// logAndJSONError centralizes error logging and the error response shape.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Start cycling all junctions
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/scheduler/start [post]
// @Security     BearerAuth
func (h *Handler) startScheduler(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Scheduler.Start(ctx); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNoJunctions):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, errStartFailed, "scheduler_start_failed", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStarted})
}

// @Summary      Stop cycling
// @Description  Cooperative stop; in-flight ticks exit at the next tick boundary.
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/scheduler/stop [post]
// @Security     BearerAuth
func (h *Handler) stopScheduler(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Scheduler.Stop(ctx); err != nil {
		if errors.Is(err, service.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStopFailed, "scheduler_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStopped})
}

// @Summary      Emergency stop
// @Description  Forces every direction of every junction to red immediately, then halts cycling.
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/scheduler/emergency-stop [post]
// @Security     BearerAuth
func (h *Handler) emergencyStop(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Scheduler.EmergencyStop(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "emergency stop incomplete", "emergency_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAllRed})
}

// @Summary      Scheduler status
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/scheduler/status [get]
// @Security     BearerAuth
func (h *Handler) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"is_running": h.services.Scheduler.IsRunning()})
}
