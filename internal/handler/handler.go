package handler

import (
	"shopsystem/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler holds the services behind every HTTP endpoint.
type Handler struct {
	authService    *service.AuthService
	productService *service.ProductService
	cartService    *service.CartService
	adminService   *service.AdminService
	paymentService *service.PaymentService
}

func NewHandler(
	authService *service.AuthService,
	productService *service.ProductService,
	cartService *service.CartService,
	adminService *service.AdminService,
	paymentService *service.PaymentService,
) *Handler {
	return &Handler{
		authService:    authService,
		productService: productService,
		cartService:    cartService,
		adminService:   adminService,
		paymentService: paymentService,
	}
}

const (
	ctxUserIDKey    = "userID"
	ctxRequestIDKey = "requestID"
)

// currentUserID is set by the auth middlewares.
func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserIDKey)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
