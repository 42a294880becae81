package handlers

import (
	"github.com/gin-gonic/gin"

	"mindbridge/models"
	"mindbridge/services/booking"
	"mindbridge/utils"
)

type BookingHandler struct {
	Service booking.ReservationService
}

func NewBookingHandler(service booking.ReservationService) *BookingHandler {
	return &BookingHandler{Service: service}
}

// CreateBookingHandler reserves a slot and opens the gateway order.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	var req models.ReserveRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.Service.Reserve(c.Request.Context(), caller, req)
	if err != nil {
		utils.JSONError(c, err)
		return
	}

	utils.JSONSuccess(c, gin.H{
		"booking":     res.Summary,
		"order":       res.Order,
		"gateway_key": res.GatewayKey,
		"client":      res.Client,
	})
}
