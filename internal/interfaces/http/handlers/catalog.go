// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// CatalogService is the read side of the product catalog
type CatalogService interface {
	GetProducts(ctx context.Context, req *product.ProductListRequest) (*product.ProductResponse, error)
	GetProductBySlug(ctx context.Context, slug string) (*product.Product, error)
	GetLowStockProducts(ctx context.Context) ([]product.Product, error)
	GetCategories(ctx context.Context) ([]product.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*product.Category, error)
}

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	catalog CatalogService
	log     logrus.FieldLogger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog CatalogService, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{catalog: catalog, log: log}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.catalog.GetProducts(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Products retrieved successfully", resp)
}

// GetProductBySlug handles GET /products/:slug
func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	p, err := h.catalog.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Product retrieved successfully", p)
}

// GetCategories handles GET /categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.catalog.GetCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Categories retrieved successfully", categories)
}

// GetCategoryBySlug handles GET /categories/:slug
func (h *ProductHandler) GetCategoryBySlug(c *gin.Context) {
	category, err := h.catalog.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Category retrieved successfully", category)
}

// GetLowStock handles GET /admin/products/low-stock
func (h *ProductHandler) GetLowStock(c *gin.Context) {
	products, err := h.catalog.GetLowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Low stock products retrieved successfully", gin.H{
		"products": products,
		"count":    len(products),
	})
}
