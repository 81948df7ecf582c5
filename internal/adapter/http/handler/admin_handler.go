package handler

import (
	"strconv"
	"strings"

	"cryoner-gateway/internal/adapter/http/dto"
	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"
	"cryoner-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AdminHandler serves the admin order surface.
type AdminHandler struct {
	orders ports.OrderRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(orders ports.OrderRepository) *AdminHandler {
	return &AdminHandler{orders: orders}
}

// List handles GET /api/v1/admin/orders with search, status filter and
// pagination.
func (h *AdminHandler) List(c *gin.Context) {
	params, err := listParamsFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	recs, total, err := h.orders.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.NewOrderListResponse(recs, total, params))
}

// Export handles GET /api/v1/admin/orders/export. It dumps every matching
// order as JSON and never mutates the ledger.
func (h *AdminHandler) Export(c *gin.Context) {
	params, err := listParamsFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	recs, err := h.orders.ListAll(c.Request.Context(), params)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	items := make([]dto.AdminOrderResponse, 0, len(recs))
	for i := range recs {
		items = append(items, dto.NewAdminOrderResponse(&recs[i]))
	}
	response.OK(c, items)
}

// UpdateStatus handles PUT /api/v1/admin/orders/:orderId/status. The
// mutation goes through the same compare-and-set as the lifecycle machine,
// so a finished order cannot be rewritten.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	raw := strings.ToUpper(strings.TrimSpace(req.Status))
	// The admin UI historically says "failed"; the ledger calls it ERROR.
	if raw == "FAILED" {
		raw = string(domain.OrderStatusError)
	}
	next, ok := domain.ParseOrderStatus(raw)
	if !ok {
		response.Error(c, apperror.ErrUnknownStatus(req.Status))
		return
	}

	rec, err := h.orders.TransitionStatus(c.Request.Context(), c.Param("orderId"), next, req.TxReference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAdminOrderResponse(rec))
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.orders.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, stats)
}

// listParamsFromQuery parses the shared filter query parameters.
func listParamsFromQuery(c *gin.Context) (ports.OrderListParams, error) {
	params := ports.OrderListParams{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     1,
		PageSize: defaultPageSize,
	}

	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseOrderStatus(strings.ToUpper(raw))
		if !ok {
			return params, apperror.ErrUnknownStatus(raw)
		}
		params.Status = &status
	}
	if raw := c.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.Page = n
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			if n > maxPageSize {
				n = maxPageSize
			}
			params.PageSize = n
		}
	}

	return params, nil
}
