package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking_allocator/internal/service"
)

type ParkingSpotHandler struct {
	parkingService *service.ParkingService
}

func NewParkingSpotHandler(ps *service.ParkingService) *ParkingSpotHandler {
	return &ParkingSpotHandler{parkingService: ps}
}

// DELETE /parking-spots/:spot_id
func (h *ParkingSpotHandler) DeleteParkingSpot(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	spotID, ok := idParam(c, "spot_id")
	if !ok {
		return
	}

	if err := h.parkingService.DeleteParkingSpot(c.Request.Context(), p, spotID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
