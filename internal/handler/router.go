package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(h *Handler, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
	}))

	user := r.Group("/user")
	{
		user.POST("/register", h.Register)
		user.POST("/login", h.Login)
	}

	product := r.Group("/product")
	{
		product.POST("/add", h.IsAdmin(), h.AddProduct)
		product.DELETE("/delete/:id", h.IsAdmin(), h.DeleteProduct)
		product.PUT("/edit/:id", h.IsAdmin(), h.EditProduct)
		product.GET("/detail/:id", h.IsUser(), h.GetProductDetail)
		product.POST("/admin/list", h.IsAdmin(), h.ListProductsForAdmin)
		product.POST("/buyer/list", h.IsBuyer(), h.ListProductsForBuyer)
		product.GET("/category/list", h.ListProductCategories)
		product.GET("/category/:id", h.ListProductsInSameCategory)
	}

	r.POST("/add/categories", h.IsAdmin(), h.AddCategory)
	r.GET("/get/categories", h.ListCategories)
	r.DELETE("/delete/categories/:id", h.IsAdmin(), h.DeleteCategory)

	cart := r.Group("/cart", h.IsBuyer())
	{
		cart.POST("/add/item", h.AddCartItem)
		cart.DELETE("/flush", h.FlushCart)
		cart.DELETE("/item/delete/:id", h.RemoveCartItem)
		cart.GET("/item/count", h.CountCartItems)
		cart.GET("/item/list", h.ListCartItems)
		cart.PUT("/quantity/update/:id", h.UpdateCartQuantity)
	}

	r.GET("/admin/dashboard", h.IsAdmin(), h.GetDashboard)

	payment := r.Group("/payment/khalti", h.IsBuyer())
	{
		payment.POST("/start", h.StartKhaltiPayment)
		payment.POST("/verify", h.VerifyKhaltiPayment)
	}

	orders := r.Group("/payment/orders", h.IsBuyer())
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:pidx", h.GetOrdersByPidx)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
