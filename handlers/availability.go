package handlers

import (
	"github.com/gin-gonic/gin"

	"mindbridge/models"
	"mindbridge/services/availability"
	"mindbridge/utils"
)

type AvailabilityHandler struct {
	Service availability.AvailabilityService
}

func NewAvailabilityHandler(service availability.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: service}
}

// GetMyAvailabilityHandler lists the caller's slots between ?start= and ?end=.
func (h *AvailabilityHandler) GetMyAvailabilityHandler(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	resp, err := h.Service.Query(c.Request.Context(), caller, c.Query("start"), c.Query("end"))
	if err != nil {
		utils.JSONError(c, err)
		return
	}
	utils.JSONSuccess(c, gin.H{"availability": resp})
}

// PublishAvailabilityHandler replaces the caller's open slots in the published range.
func (h *AvailabilityHandler) PublishAvailabilityHandler(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	var req models.PublishAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.Service.Publish(c.Request.Context(), caller, req)
	if err != nil {
		utils.JSONError(c, err)
		return
	}
	utils.JSONSuccess(c, gin.H{"message": "Availability updated.", "availability": resp})
}

func (h *AvailabilityHandler) PublicAvailabilityHandler(c *gin.Context) {
	resp, err := h.Service.PublicQuery(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		utils.JSONError(c, err)
		return
	}
	utils.JSONSuccess(c, gin.H{
		"slots":            resp.Slots,
		"session_duration": resp.SessionDuration,
		"min_booking_date": resp.MinBookingDate,
	})
}
