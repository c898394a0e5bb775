package handlers

import (
	"errors"
	"net/http"

	"traffic_control/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateJunctionRequest is the POST /junctions payload.
type CreateJunctionRequest struct {
	ID   string `json:"id" binding:"required" example:"junction-7"`
	Name string `json:"name" example:"7th & Main"`
	// Rotation order; empty means the default A,B,C,D.
	Directions []string `json:"directions" example:"A,B,C,D"`
}

// ForceGreenRequest is the force-green payload.
type ForceGreenRequest struct {
	// How long the forced green holds, in seconds.
	Seconds int `json:"seconds" binding:"required" example:"20"`
}

// DurationsRequest is the duration-edit payload.
type DurationsRequest struct {
	GreenSeconds  int `json:"green_duration" binding:"required" example:"30"`
	YellowSeconds int `json:"yellow_duration" binding:"required" example:"5"`
}

// respondOverrideError maps the override/junction sentinels onto HTTP codes.
func (h *Handler) respondOverrideError(c *gin.Context, err error, logKey string) {
	switch {
	case errors.Is(err, service.ErrUnknownJunction), errors.Is(err, service.ErrUnknownDirection):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		if h.log != nil {
			h.log.Errorw(logKey, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// @Summary      List junctions
// @Tags         junctions
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, junctions"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/junctions [get]
// @Security     BearerAuth
func (h *Handler) listJunctions(c *gin.Context) {
	ctx := c.Request.Context()
	js, err := h.services.Junctions.ListJunctions(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load junctions", "junctions_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(js), "junctions": js})
}

// @Summary      Get one junction
// @Description  Returns a default, unsaved snapshot when the junction has never been initialized.
// @Tags         junctions
// @Produce      json
// @Param        id  path  string  true  "Junction id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/junctions/{id} [get]
// @Security     BearerAuth
func (h *Handler) getJunction(c *gin.Context) {
	ctx := c.Request.Context()
	j, err := h.services.Junctions.GetJunction(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load junction", "junction_get_failed", err, "junction", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, j)
}

// @Summary      Create a junction
// @Tags         junctions
// @Accept       json
// @Produce      json
// @Param        body  body  CreateJunctionRequest  true  "Junction payload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/junctions [post]
// @Security     BearerAuth
func (h *Handler) createJunction(c *gin.Context) {
	var req CreateJunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	j, err := h.services.Junctions.CreateJunction(ctx, req.ID, req.Name, req.Directions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, j)
}

// @Summary      Link tracked inventory lights
// @Description  Resolves backend-tracked light records for the intersection and attaches their ids to the junction's directions.
// @Tags         junctions
// @Produce      json
// @Param        id  path  string  true  "Junction id"
// @Success      200  {object}  map[string]interface{}  "linked"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/junctions/{id}/sync-inventory [post]
// @Security     BearerAuth
func (h *Handler) syncInventory(c *gin.Context) {
	ctx := c.Request.Context()
	linked, err := h.services.Junctions.SyncInventory(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownJunction) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusBadGateway, "inventory sync failed", "inventory_sync_failed", err, "junction", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": linked})
}

// @Summary      Force one direction to green
// @Description  Immediate manual override; the junction goes into manual posture until resume-auto.
// @Tags         override
// @Accept       json
// @Produce      json
// @Param        id         path  string            true  "Junction id"
// @Param        direction  path  string            true  "Direction code"
// @Param        body       body  ForceGreenRequest true  "Override payload"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/junctions/{id}/lights/{direction}/force-green [post]
// @Security     BearerAuth
func (h *Handler) forceGreen(c *gin.Context) {
	var req ForceGreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Override.ForceGreen(ctx, c.Param("id"), c.Param("direction"), req.Seconds); err != nil {
		h.respondOverrideError(c, err, "force_green_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "forced_green"})
}

// @Summary      Resume automatic cycling for a direction
// @Tags         override
// @Produce      json
// @Param        id         path  string  true  "Junction id"
// @Param        direction  path  string  true  "Direction code"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/junctions/{id}/lights/{direction}/resume-auto [post]
// @Security     BearerAuth
func (h *Handler) resumeAuto(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Override.ResumeAuto(ctx, c.Param("id"), c.Param("direction")); err != nil {
		h.respondOverrideError(c, err, "resume_auto_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "auto"})
}

// @Summary      Save per-direction durations
// @Description  Takes effect on the direction's next computed phase, not retroactively.
// @Tags         override
// @Accept       json
// @Produce      json
// @Param        id         path  string           true  "Junction id"
// @Param        direction  path  string           true  "Direction code"
// @Param        body       body  DurationsRequest true  "Durations payload"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/junctions/{id}/lights/{direction}/durations [put]
// @Security     BearerAuth
func (h *Handler) saveDurations(c *gin.Context) {
	var req DurationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Override.SaveDurations(ctx, c.Param("id"), c.Param("direction"), req.GreenSeconds, req.YellowSeconds); err != nil {
		h.respondOverrideError(c, err, "save_durations_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
