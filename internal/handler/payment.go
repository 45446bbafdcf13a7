package handler

import (
	"errors"
	"log"
	"net/http"

	"shopsystem/internal/model"
	"shopsystem/internal/service"
	"shopsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentProductRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	OrderedQuantity int    `json:"orderedQuantity" binding:"required,min=1"`
}

type StartPaymentRequest struct {
	Amount      float64                 `json:"amount" binding:"required,gt=0"`
	ProductList []PaymentProductRequest `json:"productList" binding:"required,min=1,dive"`
}

type VerifyPaymentRequest struct {
	Pidx string `json:"pidx" binding:"required"`
}

func (h *Handler) StartKhaltiPayment(c *gin.Context) {
	var req StartPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	products := make([]model.OrderProduct, 0, len(req.ProductList))
	for _, p := range req.ProductList {
		products = append(products, model.OrderProduct{
			ProductID:       p.ProductID,
			OrderedQuantity: p.OrderedQuantity,
		})
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), &service.InitiatePaymentRequest{
		BuyerID:     currentUserID(c),
		Amount:      req.Amount,
		ProductList: products,
	})
	if err != nil {
		response.ServerError(c, "Payment initialization failed.", err)
		return
	}

	response.JSON(c, http.StatusOK, "Khalti Payment initiation successful", gin.H{
		"paymentDetails": result.PaymentDetails,
	})
}

// VerifyKhaltiPayment answers 400 for every negative outcome; only a Completed
// payment is a success.
func (h *Handler) VerifyKhaltiPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "Khalti Payment verification failed")
		return
	}

	buyerID := currentUserID(c)
	result, err := h.paymentService.Verify(c.Request.Context(), buyerID, req.Pidx)
	if err != nil {
		log.Printf("[Handler] payment verification failed: buyer=%s, pidx=%s, err=%v", buyerID, req.Pidx, err)
		response.ParamError(c, "Khalti Payment verification failed")
		return
	}

	if !result.Completed {
		response.ParamError(c, "Khalti Payment status failed")
		return
	}
	response.Message(c, http.StatusOK, "Khalti payment is successful")
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.paymentService.Orders(c.Request.Context(), currentUserID(c))
	if err != nil {
		log.Printf("[Handler] list orders failed: buyer=%s, err=%v", currentUserID(c), err)
		response.ServerError(c, "Something went wrong.", nil)
		return
	}
	response.Success(c, gin.H{"orders": orders})
}

func (h *Handler) GetOrdersByPidx(c *gin.Context) {
	orders, err := h.paymentService.OrdersByPidx(c.Request.Context(), currentUserID(c), c.Param("pidx"))
	if errors.Is(err, service.ErrOrderNotFound) {
		response.NotFound(c, "Order does not exist.")
		return
	}
	if err != nil {
		log.Printf("[Handler] find orders failed: buyer=%s, pidx=%s, err=%v", currentUserID(c), c.Param("pidx"), err)
		response.ServerError(c, "Something went wrong.", nil)
		return
	}
	response.Success(c, gin.H{"orders": orders})
}
