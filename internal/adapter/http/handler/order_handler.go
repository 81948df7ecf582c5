package handler

import (
	"cryoner-gateway/internal/adapter/http/dto"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"
	"cryoner-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves the public order-status view.
type OrderHandler struct {
	orders ports.OrderRepository
	engine ports.PaymentEngine
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders ports.OrderRepository, engine ports.PaymentEngine) *OrderHandler {
	return &OrderHandler{orders: orders, engine: engine}
}

// Get handles GET /api/v1/orders/:orderId.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID := c.Param("orderId")

	rec, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if rec == nil {
		response.Error(c, apperror.ErrOrderNotFound())
		return
	}

	remaining, active := h.engine.Remaining(orderID)
	if !active {
		remaining = 0
	}
	response.OK(c, dto.NewOrderView(rec, remaining))
}
