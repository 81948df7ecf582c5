package handler

import (
	"cryoner-gateway/internal/adapter/http/dto"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"
	"cryoner-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler handles the public checkout flow.
type CheckoutHandler struct {
	intake ports.IntakeService
	engine ports.PaymentEngine
	orders ports.OrderRepository
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(intake ports.IntakeService, engine ports.PaymentEngine, orders ports.OrderRepository) *CheckoutHandler {
	return &CheckoutHandler{intake: intake, engine: engine, orders: orders}
}

// Create handles POST /api/v1/checkout. Order parameters arrive in the
// query string or the form body; requests carrying none of the recognized
// parameters are rejected before any parsing happens.
func (h *CheckoutHandler) Create(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		response.Error(c, apperror.Validation("cannot parse request parameters"))
		return
	}
	params := c.Request.Form

	if !h.intake.HasOrderParams(params) {
		response.Error(c, apperror.ErrMissingOrderParams())
		return
	}

	data, err := h.intake.FromQuery(params)
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.engine.Begin(c.Request.Context(), *data, ports.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	remaining, _ := h.engine.Remaining(rec.OrderID)
	response.Created(c, dto.CheckoutResponse{
		OrderID:        rec.OrderID,
		Status:         string(rec.Status),
		AmountUSD:      rec.AmountUSD,
		Currency:       string(rec.Currency),
		CryptoAmount:   rec.CryptoAmount,
		PaymentAddress: rec.PaymentAddress,
		Network:        rec.Network,
		QRPayload:      dto.QRPayload(rec.Currency, rec.PaymentAddress, rec.CryptoAmount),
		ExpiresIn:      remaining,
	})
}

// Status handles GET /api/v1/checkout/:orderId.
func (h *CheckoutHandler) Status(c *gin.Context) {
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

// Check handles POST /api/v1/checkout/:orderId/check. The probe result is
// returned as-is; the lifecycle machine stays the only actor that moves
// the order.
func (h *CheckoutHandler) Check(c *gin.Context) {
	result, err := h.engine.CheckNow(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
