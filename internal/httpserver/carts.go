package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cartsvc "shopcore/internal/service/cart"
	ordersvc "shopcore/internal/service/order"
)

func (h *handlers) createCart(c *gin.Context) {
	var req cartsvc.CreateInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cart, err := h.deps.Carts.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *handlers) getCart(c *gin.Context) {
	// lookup by id, or by user/session when query params are given
	ctx := c.Request.Context()
	if userID := c.Query("userId"); c.Param("id") == "active" && userID != "" {
		cart, err := h.deps.Carts.GetActiveByUser(ctx, userID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
		return
	}
	if token := c.Query("sessionToken"); c.Param("id") == "active" && token != "" {
		cart, err := h.deps.Carts.GetActiveBySession(ctx, token)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
		return
	}
	cart, err := h.deps.Carts.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.AddItem(c.Request.Context(), c.Param("id"), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.UpdateItemQuantity(c.Request.Context(), c.Param("id"), c.Param("productID"), req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	cart, err := h.deps.Carts.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("productID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, err := h.deps.Carts.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type applyCouponRequest struct {
	Code          string `json:"code" binding:"required"`
	DiscountCents int64  `json:"discountCents"`
}

func (h *handlers) applyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.ApplyCoupon(c.Request.Context(), c.Param("id"), req.Code, req.DiscountCents)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type shareCartRequest struct {
	TTLSeconds int `json:"ttlSeconds"`
}

func (h *handlers) shareCart(c *gin.Context) {
	var req shareCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	cart, err := h.deps.Carts.Share(c.Request.Context(), c.Param("id"), ttl)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type mergeCartsRequest struct {
	GuestCartID string `json:"guestCartId" binding:"required"`
}

func (h *handlers) mergeCarts(c *gin.Context) {
	var req mergeCartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.Merge(c.Request.Context(), req.GuestCartID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) validateCart(c *gin.Context) {
	result, err := h.deps.Carts.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type checkoutRequest struct {
	UserID string `json:"userId"`
	ordersvc.CheckoutInput
}

func (h *handlers) checkoutCart(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.TaxRate.IsZero() {
		req.TaxRate = h.deps.TaxRate
	}
	order, err := h.deps.Orders.CheckoutCart(c.Request.Context(), c.Param("id"), req.UserID, req.CheckoutInput)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
