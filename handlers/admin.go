// File: mindbridge/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"mindbridge/models"
	"mindbridge/services/reconciliation"
	"mindbridge/utils"
)

// AdminHandler encapsulates elevated admin-level operations.
type AdminHandler struct {
	Reconciler reconciliation.ReconciliationService
}

func NewAdminHandler(reconciler reconciliation.ReconciliationService) *AdminHandler {
	return &AdminHandler{Reconciler: reconciler}
}

// OverridePaymentHandler settles a payment by hand.
func (ah *AdminHandler) OverridePaymentHandler(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	var req models.PaymentOverrideRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := ah.Reconciler.Override(c.Request.Context(), caller, c.Param("reference"), req)
	if err != nil {
		utils.JSONError(c, err)
		return
	}
	utils.JSONSuccess(c, gin.H{
		"booking": gin.H{
			"reference":      b.Reference,
			"status":         b.Status,
			"payment_status": b.PaymentStatus,
		},
	})
}
