package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/service/lifecycle"
	"github.com/maryoneshop/orderflow/internal/service/verification"
)

// OrderHandler обслуживает HTTP-операции над заказами.
type OrderHandler struct {
	orders       *lifecycle.Service
	verification *verification.Service
	logger       *log.Entry
}

func NewOrderHandler(orders *lifecycle.Service, verif *verification.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &OrderHandler{orders: orders, verification: verif, logger: logger}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError переводит доменные ошибки в HTTP-статусы. Конфликты состояния
// (машина статусов, версии, повторное решение возврата) отдаются как 409,
// чтобы клиент отличал их от ошибок валидации.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrSKUNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})

	case errors.Is(err, domain.ErrInsufficientStock):
		c.JSON(http.StatusConflict, errorResponse{Code: "insufficient_stock", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Code: "invalid_transition", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, errorResponse{Code: "return_already_resolved", Message: err.Error()})
	case errors.Is(err, domain.ErrNotPendingReturn):
		c.JSON(http.StatusConflict, errorResponse{Code: "no_pending_return", Message: err.Error()})
	case errors.Is(err, domain.ErrOrderNotEditable):
		c.JSON(http.StatusConflict, errorResponse{Code: "order_not_editable", Message: err.Error()})
	case errors.Is(err, domain.ErrOrderVersionConflict):
		c.JSON(http.StatusConflict, errorResponse{Code: "version_conflict", Message: err.Error()})

	case errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrPaymentMethodRequired),
		errors.Is(err, domain.ErrChargeNegative),
		errors.Is(err, domain.ErrTotalMismatch),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrCourierRequired),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrUnknownStockReason),
		errors.Is(err, domain.ErrZeroDelta),
		errors.Is(err, domain.ErrUnknownResolution),
		errors.Is(err, domain.ErrUnknownOutcome),
		errors.Is(err, domain.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, errorResponse{Code: "validation_failed", Message: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal server error"})
	}
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
}

func actorFrom(c *gin.Context) string {
	return c.GetHeader("X-Actor")
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.orders.CreateOrder(lifecycle.CreateOrderParams{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		Email:           req.Email,
		Phone:           req.Phone,
		ShippingAddress: toAddress(req.ShippingAddress),
		PaymentMethod:   req.PaymentMethod,
		ShippingMinor:   req.ShippingMinor,
		FeeMinor:        req.FeeMinor,
		Items:           toItemParams(req.Items),
		Actor:           actorFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, timeline, err := h.orders.GetOrder(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	events := make([]timelineEventResponse, 0, len(timeline))
	for _, event := range timeline {
		events = append(events, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}

	c.JSON(http.StatusOK, orderDetailsResponse{
		orderResponse: toOrderResponse(order),
		Timeline:      events,
	})
}

func (h *OrderHandler) List(c *gin.Context) {
	filter := domain.OrderFilter{
		CustomerID: c.Query("customerId"),
		Status:     domain.OrderStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(c, domain.ErrUnknownStatus)
		return
	}

	orders, err := h.orders.ListOrders(filter)
	if err != nil {
		writeError(c, err)
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": result})
}

func (h *OrderHandler) Stats(c *gin.Context) {
	stats, err := h.orders.Stats()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":             stats.Count,
		"totalRevenueMinor": stats.TotalRevenueMinor,
		"pendingValueMinor": stats.PendingValueMinor,
		"totalLossMinor":    stats.TotalLossMinor,
	})
}

func (h *OrderHandler) EditItems(c *gin.Context) {
	var req editItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.orders.EditOrderItems(c.Param("id"), toItemParams(req.Items), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	target, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := h.orders.TransitionStatus(c.Param("id"), target, lifecycle.TransitionOptions{
		Courier: req.Courier,
		Reason:  req.Reason,
	}, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ResolveReturn(c *gin.Context) {
	var req resolveReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.orders.ResolveReturn(c.Param("id"), domain.ReturnStatus(req.Action), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) SetPaymentStatus(c *gin.Context) {
	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.orders.SetPaymentStatus(c.Param("id"), domain.PaymentStatus(req.Status), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) LogVerification(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	entry, err := h.verification.Log(
		c.Param("id"),
		domain.VerificationAction(req.Action),
		domain.VerificationOutcome(req.Outcome),
		req.Note,
		actorFrom(c),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, verificationEntryResponse{
		ID:       entry.ID,
		OrderID:  entry.OrderID,
		Action:   string(entry.Action),
		Outcome:  string(entry.Outcome),
		Note:     entry.Note,
		Actor:    entry.Actor,
		Occurred: entry.Occurred,
	})
}

func (h *OrderHandler) ListVerification(c *gin.Context) {
	entries, err := h.verification.List(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	result := make([]verificationEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, verificationEntryResponse{
			ID:       entry.ID,
			OrderID:  entry.OrderID,
			Action:   string(entry.Action),
			Outcome:  string(entry.Outcome),
			Note:     entry.Note,
			Actor:    entry.Actor,
			Occurred: entry.Occurred,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": result})
}

// StockHandler обслуживает складские операции.
type StockHandler struct {
	stock  *lifecycle.Service
	logger *log.Entry
}

func NewStockHandler(stock *lifecycle.Service, logger *log.Entry) *StockHandler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &StockHandler{stock: stock, logger: logger}
}

func (h *StockHandler) Adjust(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	sku := domain.SKU{ProductID: req.ProductID, VariantID: req.VariantID}
	level, err := h.stock.AdjustStock(sku, req.Change, domain.StockReason(req.Reason), req.Note, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": sku.Key(), "level": level})
}

func (h *StockHandler) ReceivePurchaseOrder(c *gin.Context) {
	var req receivePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	lines := make([]lifecycle.POLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, lifecycle.POLine{
			SKU: domain.SKU{ProductID: line.ProductID, VariantID: line.VariantID},
			Qty: line.Qty,
		})
	}

	levels, err := h.stock.ReceivePurchaseOrder(req.PONumber, lines, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"poNumber": req.PONumber, "levels": levels})
}

func (h *StockHandler) Level(c *gin.Context) {
	sku := domain.SKU{ProductID: c.Param("productId"), VariantID: c.Query("variantId")}
	level, err := h.stock.StockLevel(sku)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": sku.Key(), "level": level})
}

func (h *StockHandler) Ledger(c *gin.Context) {
	sku := domain.SKU{ProductID: c.Param("productId"), VariantID: c.Query("variantId")}
	entries, err := h.stock.StockHistory(sku)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": sku.Key(), "entries": toLedgerEntries(entries)})
}
