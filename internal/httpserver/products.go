package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcore/internal/domain"
)

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.Products.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *handlers) getProduct(c *gin.Context) {
	ctx := c.Request.Context()
	if sku := c.Query("sku"); c.Param("id") == "by-sku" && sku != "" {
		product, err := h.deps.Products.FindBySKU(ctx, sku)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
		return
	}
	product, err := h.deps.Products.FindByID(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handlers) upsertProduct(c *gin.Context) {
	var req domain.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := h.deps.Products.Upsert(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handlers) getStock(c *gin.Context) {
	level, err := h.deps.Stock.Query(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productId": level.ProductID,
		"onHand":    level.OnHand,
		"reserved":  level.Reserved,
		"available": level.Available(),
	})
}

type setStockRequest struct {
	OnHand int `json:"onHand"`
}

func (h *handlers) setStock(c *gin.Context) {
	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.deps.Adjuster.SetOnHand(c.Request.Context(), c.Param("id"), req.OnHand); err != nil {
		h.fail(c, err)
		return
	}
	level, err := h.deps.Stock.Query(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productId": level.ProductID,
		"onHand":    level.OnHand,
		"reserved":  level.Reserved,
		"available": level.Available(),
	})
}
