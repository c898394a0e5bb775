package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"traffic_control/internal/repository"

	"github.com/gin-gonic/gin"
)

// @Summary      Compare live vs typical travel time past a tracked light
// @Description  Bands current conditions against the typical estimate: more than 3 minutes off means slower/faster.
// @Tags         traffic-lights
// @Produce      json
// @Param        id   path   string  true  "Traffic light id"
// @Param        lat  query  number  true  "Destination latitude"
// @Param        lng  query  number  true  "Destination longitude"
// @Success      200  {object}  service.EtaComparison
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/traffic-lights/{id}/eta [get]
// @Security     BearerAuth
func (h *Handler) compareEta(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'lat' query parameter"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'lng' query parameter"})
		return
	}

	ctx := c.Request.Context()
	cmp, err := h.services.Eta.Compare(ctx, c.Param("id"), lat, lng)
	if err != nil {
		if errors.Is(err, repository.ErrTrafficLightNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusBadGateway, "eta comparison failed", "eta_compare_failed", err, "light", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, cmp)
}
