package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ordersvc "shopcore/internal/service/order"
)

func (h *handlers) createOrder(c *gin.Context) {
	var req ordersvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.TaxRate.IsZero() {
		req.TaxRate = h.deps.TaxRate
	}
	order, err := h.deps.Orders.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handlers) getOrder(c *gin.Context) {
	// lookup by id, or by order number via /orders/by-number?number=...
	ctx := c.Request.Context()
	if number := c.Query("number"); c.Param("id") == "by-number" && number != "" {
		order, err := h.deps.Orders.GetByNumber(ctx, number)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
		return
	}
	order, err := h.deps.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) listUserOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *handlers) confirmOrder(c *gin.Context) {
	order, err := h.deps.Orders.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) processOrder(c *gin.Context) {
	order, err := h.deps.Orders.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type shipRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required"`
	Carrier        string `json:"carrier" binding:"required"`
}

func (h *handlers) shipOrder(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.deps.Orders.Ship(c.Request.Context(), c.Param("id"), req.TrackingNumber, req.Carrier)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) outForDelivery(c *gin.Context) {
	order, err := h.deps.Orders.OutForDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) deliverOrder(c *gin.Context) {
	order, err := h.deps.Orders.Deliver(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	order, err := h.deps.Orders.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type payRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

func (h *handlers) payOrder(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.deps.Orders.MarkAsPaid(c.Request.Context(), c.Param("id"), req.TransactionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) failPayment(c *gin.Context) {
	order, err := h.deps.Orders.MarkPaymentFailed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type refundRequest struct {
	AmountCents int64  `json:"amountCents" binding:"required"`
	Reason      string `json:"reason"`
}

func (h *handlers) refundOrder(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.deps.Orders.Refund(c.Request.Context(), c.Param("id"), req.AmountCents, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
