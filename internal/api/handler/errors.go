package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking_allocator/internal/api/middleware"
	"parking_allocator/internal/domain"
	"parking_allocator/internal/service"
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrTokenInvalid, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrUserDeleted, http.StatusForbidden},
	{service.ErrLotNotFound, http.StatusNotFound},
	{service.ErrSpotNotFound, http.StatusNotFound},
	{service.ErrReservationNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrDuplicateName, http.StatusConflict},
	{service.ErrCapacityBelowOccupancy, http.StatusConflict},
	{service.ErrLotOccupied, http.StatusConflict},
	{service.ErrSpotOccupied, http.StatusConflict},
	{service.ErrNoSpotAvailable, http.StatusConflict},
	{service.ErrActiveReservationExists, http.StatusConflict},
	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrDuplicateRequest, http.StatusConflict},
	{service.ErrPlateNotRecognized, http.StatusUnprocessableEntity},
}

func statusFor(err error) int {
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the service error as JSON. Store failures are logged
// and reported without their cause.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrTokenInvalid.Error()})
	}
	return p, ok
}
