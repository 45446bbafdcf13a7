package handler

import (
	"errors"
	"log"
	"net/http"

	"shopsystem/internal/repository"
	"shopsystem/internal/service"
	"shopsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductRequest struct {
	Name         string  `json:"name" binding:"required,max=55"`
	Brand        string  `json:"brand" binding:"required,max=55"`
	Price        float64 `json:"price" binding:"gte=0"`
	Quantity     int     `json:"quantity" binding:"required,min=1"`
	Category     string  `json:"category" binding:"required,max=55"`
	FreeShipping bool    `json:"freeShipping"`
	Description  string  `json:"description" binding:"required,min=100,max=1000"`
	Image        *string `json:"image" binding:"omitempty,url"`
}

func (r *ProductRequest) input() *service.ProductInput {
	return &service.ProductInput{
		Name:         r.Name,
		Brand:        r.Brand,
		Price:        r.Price,
		Quantity:     r.Quantity,
		Category:     r.Category,
		FreeShipping: r.FreeShipping,
		Description:  r.Description,
		Image:        r.Image,
	}
}

type CategoryRequest struct {
	Title string `json:"title" binding:"required,max=55"`
}

// productError answers the owner-checked product errors; anything else is a 500.
func productError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		response.NotFound(c, "Product does not exist.")
	case errors.Is(err, service.ErrNotProductOwner):
		response.Message(c, http.StatusForbidden, "You are not owner of this product.")
	default:
		log.Printf("[Handler] product request failed: path=%s, err=%v", c.Request.URL.Path, err)
		response.ServerError(c, "Something went wrong.", nil)
	}
}

func (h *Handler) AddProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if _, err := h.productService.Add(c.Request.Context(), currentUserID(c), req.input()); err != nil {
		productError(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Product is added successfully.")
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	if err := h.productService.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		productError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Product is deleted successfully.")
}

func (h *Handler) EditProduct(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.productService.Edit(c.Request.Context(), currentUserID(c), id, req.input()); err != nil {
		productError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Product is edited successfully.")
}

func (h *Handler) GetProductDetail(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	product, err := h.productService.Detail(c.Request.Context(), id)
	if err != nil {
		productError(c, err)
		return
	}
	response.Success(c, gin.H{"productDetail": product})
}

func (h *Handler) ListProductsForAdmin(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context())
	if err != nil {
		productError(c, err)
		return
	}
	response.Success(c, gin.H{"allProducts": products})
}

func (h *Handler) ListProductsForBuyer(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context())
	if err != nil {
		productError(c, err)
		return
	}
	response.Success(c, gin.H{"productList": products})
}

func (h *Handler) ListProductCategories(c *gin.Context) {
	categories, err := h.productService.Categories(c.Request.Context())
	if err != nil {
		productError(c, err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

func (h *Handler) ListProductsInSameCategory(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	products, err := h.productService.SameCategory(c.Request.Context(), id)
	if err != nil {
		productError(c, err)
		return
	}
	response.Success(c, gin.H{"productList": products})
}

func (h *Handler) AddCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	category, err := h.productService.AddCategory(c.Request.Context(), req.Title)
	if err != nil {
		productError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, "Category is added successfully.", gin.H{"category": category})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	if err != nil {
		productError(c, err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	err := h.productService.DeleteCategory(c.Request.Context(), id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		response.NotFound(c, "Category does not exist.")
		return
	}
	if err != nil {
		productError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Category is deleted successfully.")
}
