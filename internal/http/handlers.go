package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfront/internal/domain"
	"shopfront/internal/service"
)

// Product handlers
type productListQuery struct {
	Category string   `form:"category"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	Page     int      `form:"page,default=1" binding:"min=1"`
	Size     int      `form:"size,default=10" binding:"min=1"`
	SortBy   string   `form:"sortBy,default=price"`
	Order    string   `form:"order,default=asc" binding:"oneof=asc desc"`
}

var productListKeys = []string{"category", "minPrice", "maxPrice", "page", "size", "sortBy", "order"}

type productSearchQuery struct {
	productListQuery
	Search string `form:"search"`
}

func (q productListQuery) params() service.ProductListParams {
	return service.ProductListParams{
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Page:     q.Page,
		Size:     q.Size,
		SortBy:   q.SortBy,
		Order:    q.Order,
	}
}

// @Summary List products
// @Tags products
// @Produce json
// @Param category query string false "Exact category"
// @Param minPrice query number false "Min price (inclusive)"
// @Param maxPrice query number false "Max price (inclusive)"
// @Param page query int false "Page, from 1" default(1)
// @Param size query int false "Page size" default(10)
// @Param sortBy query string false "Sort field" default(price)
// @Param order query string false "asc or desc" default(asc)
// @Success 200 {object} domain.ProductPage
// @Failure 400 {object} errorResponse
// @Router /product [get]
func (s *Server) listProducts(c *gin.Context) {
	if !onlyQuery(c, productListKeys...) {
		return
	}
	var q productListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	page, err := s.products.List(c.Request.Context(), q.params())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Search products
// @Description Case-insensitive literal match against name or description, combined with the list filters.
// @Tags products
// @Produce json
// @Param search query string false "Search text"
// @Param category query string false "Exact category"
// @Param minPrice query number false "Min price (inclusive)"
// @Param maxPrice query number false "Max price (inclusive)"
// @Param page query int false "Page, from 1" default(1)
// @Param size query int false "Page size" default(10)
// @Param sortBy query string false "Sort field" default(price)
// @Param order query string false "asc or desc" default(asc)
// @Success 200 {object} domain.ProductPage
// @Failure 400 {object} errorResponse
// @Router /product/search [get]
func (s *Server) searchProducts(c *gin.Context) {
	if !onlyQuery(c, append(productListKeys, "search")...) {
		return
	}
	var q productSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	params := q.params()
	params.Search = q.Search
	page, err := s.products.Search(c.Request.Context(), params)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} errorResponse
// @Router /product/get/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type createProductReq struct {
	Name        string   `json:"name" binding:"required"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Router /product [post]
func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.products.Create(c.Request.Context(), domain.Product{
		Name:        req.Name,
		Price:       *req.Price,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type updateProductReq struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Category    *string  `json:"category" binding:"omitempty,min=1"`
	Description *string  `json:"description"`
}

// @Summary Update product
// @Description Only the fields present in the body are changed.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body updateProductReq true "Fields to change"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /product/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	var req updateProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.products.Update(c.Request.Context(), c.Param("id"), domain.ProductPatch{
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /product/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Order handlers
type orderListQuery struct {
	Page int `form:"page,default=1" binding:"min=1"`
	Size int `form:"size,default=10" binding:"min=1"`
}

// @Summary List orders
// @Description Newest first.
// @Tags orders
// @Produce json
// @Param page query int false "Page, from 1" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} domain.OrderPage
// @Failure 400 {object} errorResponse
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	if !onlyQuery(c, "page", "size") {
		return
	}
	var q orderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	page, err := s.orders.ListOrders(c.Request.Context(), q.Page, q.Size)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type orderItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

type createOrderReq struct {
	Customer string         `json:"customer" binding:"required"`
	Items    []orderItemReq `json:"items" binding:"required,min=1,dive"`
}

// @Summary Create order
// @Description Status starts as Pending; productIds are not checked.
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := s.orders.CreateOrder(c.Request.Context(), req.Customer, items)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order
// @Tags orders
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
