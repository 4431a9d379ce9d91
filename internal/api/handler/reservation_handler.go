package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/service"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
}

func NewReservationHandler(rs *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs}
}

// POST /reservations
func (h *ReservationHandler) OpenReservation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var dto domain.OpenReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err)
		return
	}

	reservation, err := h.reservationService.OpenReservation(c.Request.Context(), p, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// GET /reservations?status=active|released
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var released null.Bool
	switch c.Query("status") {
	case "":
	case "active":
		released = null.BoolFrom(false)
	case "released":
		released = null.BoolFrom(true)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or released"})
		return
	}

	reservations, err := h.reservationService.ListReservations(c.Request.Context(), p, released)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.reservationService.GetReservation(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// GET /reservations/:id/quote?out_time=RFC3339
func (h *ReservationHandler) QuoteRelease(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var outTime *time.Time
	if raw := c.Query("out_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "out_time must be RFC3339"})
			return
		}
		outTime = &t
	}

	quote, err := h.reservationService.QuoteRelease(c.Request.Context(), p, id, outTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// POST /reservations/:id/release
func (h *ReservationHandler) CloseReservation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var dto domain.CloseReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	reservation, err := h.reservationService.CloseReservation(c.Request.Context(), p, id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}
