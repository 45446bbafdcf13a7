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

type AddCartItemRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	OrderedQuantity int    `json:"orderedQuantity" binding:"required,min=1"`
}

type UpdateCartQuantityRequest struct {
	Action string `json:"action" binding:"required,oneof=inc dec"`
}

func cartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		response.NotFound(c, "Product does not exist.")
	case errors.Is(err, repository.ErrCartItemNotFound):
		response.NotFound(c, "Item is not in cart.")
	case errors.Is(err, service.ErrCartItemExists):
		response.Message(c, http.StatusConflict, "Item is already added to cart.")
	case errors.Is(err, service.ErrOutOfStock):
		response.Message(c, http.StatusForbidden, "Product is outnumbered.")
	case errors.Is(err, service.ErrQuantityBelowOne):
		response.Message(c, http.StatusForbidden, "Please remove item from cart.")
	case errors.Is(err, service.ErrInvalidAction):
		response.ParamError(c, "Invalid action.")
	default:
		log.Printf("[Handler] cart request failed: buyer=%s, path=%s, err=%v",
			currentUserID(c), c.Request.URL.Path, err)
		response.ServerError(c, "Something went wrong.", nil)
	}
}

func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if !validID(req.ProductID) {
		response.ParamError(c, "Invalid id.")
		return
	}

	if err := h.cartService.AddItem(c.Request.Context(), currentUserID(c), req.ProductID, req.OrderedQuantity); err != nil {
		cartError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Item is added to cart successfully.")
}

func (h *Handler) FlushCart(c *gin.Context) {
	if err := h.cartService.Flush(c.Request.Context(), currentUserID(c)); err != nil {
		cartError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Cart is cleared successfully.")
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), currentUserID(c), id); err != nil {
		cartError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Item is removed from cart successfully.")
}

func (h *Handler) CountCartItems(c *gin.Context) {
	count, err := h.cartService.Count(c.Request.Context(), currentUserID(c))
	if err != nil {
		cartError(c, err)
		return
	}
	response.Success(c, gin.H{"itemCount": count})
}

func (h *Handler) ListCartItems(c *gin.Context) {
	lines, err := h.cartService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		cartError(c, err)
		return
	}
	response.Success(c, gin.H{"cartItem": lines})
}

func (h *Handler) UpdateCartQuantity(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		response.ParamError(c, "Invalid id.")
		return
	}

	var req UpdateCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.cartService.UpdateQuantity(c.Request.Context(), currentUserID(c), id, req.Action); err != nil {
		cartError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Cart item quantity is updated successfully.")
}
