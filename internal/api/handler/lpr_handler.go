package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/service"
)

type LPRHandler struct {
	lprService *service.LPRService
}

func NewLPRHandler(lprService *service.LPRService) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /lpr/vehicle-number
func (h *LPRHandler) ReadVehicleNumber(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not a valid image"})
		return
	}

	plate, confidence, err := h.lprService.ReadVehicleNumber(c.Request.Context(), imageBytes)
	if errors.Is(err, service.ErrPlateNotRecognized) {
		c.JSON(http.StatusUnprocessableEntity, domain.LPRResponseDTO{ErrorMessage: err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.LPRResponseDTO{VehicleNumber: plate, Confidence: confidence})
}
