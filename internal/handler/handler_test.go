package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"shopsystem/internal/config"
	"shopsystem/internal/infrastructure/database"
	"shopsystem/internal/infrastructure/khalti"
	"shopsystem/internal/model"
	"shopsystem/internal/service"
	"shopsystem/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// khaltiStub serves the two Khalti endpoints. Initiate hands out PX1, PX2, ...
type khaltiStub struct {
	mu           sync.Mutex
	initiated    int
	initiateCode int
	lookupCode   int
	status       string
}

func (k *khaltiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	k.mu.Lock()
	defer k.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/epayment/initiate/":
		if k.initiateCode != 0 {
			w.WriteHeader(k.initiateCode)
			_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
			return
		}
		k.initiated++
		pidx := fmt.Sprintf("PX%d", k.initiated)
		_, _ = fmt.Fprintf(w, `{"pidx":%q,"payment_url":"https://test-pay.khalti.com/?pidx=%s","expires_in":1800}`, pidx, pidx)
	case "/epayment/lookup/":
		if k.lookupCode != 0 {
			w.WriteHeader(k.lookupCode)
			_, _ = w.Write([]byte(`{"detail":"Not found."}`))
			return
		}
		var body struct {
			Pidx string `json:"pidx"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = fmt.Fprintf(w, `{"pidx":%q,"total_amount":50000,"status":%q,"transaction_id":null,"fee":0,"refunded":false}`, body.Pidx, k.status)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (k *khaltiStub) set(fn func(k *khaltiStub)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	fn(k)
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	auth     *service.AuthService
	products *service.ProductService
	khalti   *khaltiStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	stub := &khaltiStub{status: "Completed"}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Khalti: config.KhaltiConfig{
			BaseURL:        srv.URL,
			SecretKey:      "test-secret",
			ReturnURL:      "http://localhost:3000/payment/",
			WebsiteURL:     "http://localhost:3000/",
			TimeoutSeconds: 5,
		},
		Auth: config.AuthConfig{JWTSecret: "test-jwt-secret", TokenTTLHours: 1},
	}

	ids, err := idgen.NewSnowflake(1)
	require.NoError(t, err)

	authService := service.NewAuthService(db, nil, cfg)
	productService := service.NewProductService(db)
	h := NewHandler(
		authService,
		productService,
		service.NewCartService(db, nil, cfg),
		service.NewAdminService(db),
		service.NewPaymentService(db, khalti.NewClient(&cfg.Khalti), ids, cfg),
	)

	return &testEnv{
		router:   SetupRouter(h, gin.TestMode),
		db:       db,
		auth:     authService,
		products: productService,
		khalti:   stub,
	}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signUp registers a user directly and returns it with an access token.
func (e *testEnv) signUp(t *testing.T, email, role string) (*model.User, string) {
	t.Helper()
	user, err := e.auth.Register(context.Background(), &service.RegisterRequest{
		Email:     email,
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "User",
		Gender:    "other",
		Role:      role,
	})
	require.NoError(t, err)
	token, err := e.auth.IssueToken(user)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) addProduct(t *testing.T, adminID, name, category string, quantity int) *model.Product {
	t.Helper()
	p, err := e.products.Add(context.Background(), adminID, &service.ProductInput{
		Name:        name,
		Brand:       "Acme",
		Price:       250,
		Quantity:    quantity,
		Category:    category,
		Description: strings.Repeat("d", 120),
	})
	require.NoError(t, err)
	return p
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error.", decode(t, w)["message"])
}

func TestAuthMiddlewares(t *testing.T) {
	env := newTestEnv(t)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	_, adminToken := env.signUp(t, "admin@example.com", model.RoleAdmin)

	tests := []struct {
		name    string
		method  string
		path    string
		token   string
		code    int
		message string
	}{
		{"no token", http.MethodGet, "/cart/item/count", "", http.StatusUnauthorized, "Unauthorized."},
		{"garbage token", http.MethodGet, "/cart/item/count", "not-a-jwt", http.StatusUnauthorized, "Unauthorized."},
		{"admin on buyer route", http.MethodGet, "/cart/item/count", adminToken, http.StatusUnauthorized, "Unauthorized."},
		{"buyer on admin route", http.MethodGet, "/admin/dashboard", buyerToken, http.StatusUnauthorized, "You are not admin."},
		{"buyer on buyer route", http.MethodGet, "/cart/item/count", buyerToken, http.StatusOK, "success"},
		{"admin on admin route", http.MethodGet, "/admin/dashboard", adminToken, http.StatusOK, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["message"])
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	register := map[string]any{
		"email":     "Sita@Example.com",
		"password":  "secret123",
		"firstName": "Sita",
		"lastName":  "Sharma",
		"gender":    "female",
	}

	w := env.do(http.MethodPost, "/user/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "User is registered successfully.", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/user/register", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already exists.", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/user/register", "", map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/user/login", "", map[string]any{"email": "sita@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["accessToken"])
	details := body["userDetails"].(map[string]any)
	assert.Equal(t, "sita@example.com", details["email"])
	assert.Equal(t, model.RoleBuyer, details["role"])
	assert.NotContains(t, details, "password")

	w = env.do(http.MethodGet, "/cart/item/count", body["accessToken"].(string), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/user/login", "", map[string]any{"email": "sita@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid credentials.", decode(t, w)["message"])
}

func TestProductRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	_, adminToken := env.signUp(t, "admin@example.com", model.RoleAdmin)
	_, otherAdminToken := env.signUp(t, "other@example.com", model.RoleAdmin)

	product := map[string]any{
		"name":        "Kettle",
		"brand":       "Acme",
		"price":       1200,
		"quantity":    5,
		"category":    "kitchen",
		"description": strings.Repeat("k", 150),
	}

	w := env.do(http.MethodPost, "/product/add", adminToken, product)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	short := map[string]any{"name": "Kettle", "brand": "Acme", "price": 10, "quantity": 1, "category": "kitchen", "description": "too short"}
	w = env.do(http.MethodPost, "/product/add", adminToken, short)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/product/buyer/list", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["productList"].([]any)
	require.Len(t, list, 1)
	id := list[0].(map[string]any)["id"].(string)
	assert.NotContains(t, list[0].(map[string]any), "adminId")

	w = env.do(http.MethodGet, "/product/detail/"+id, buyerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Kettle", decode(t, w)["productDetail"].(map[string]any)["name"])

	w = env.do(http.MethodGet, "/product/detail/not-a-uuid", buyerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id.", decode(t, w)["message"])

	w = env.do(http.MethodGet, "/product/detail/6f1c1f3e-8a4b-4c59-9d1c-2b0f0e6f7a11", buyerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product does not exist.", decode(t, w)["message"])

	product["price"] = 1500
	w = env.do(http.MethodPut, "/product/edit/"+id, otherAdminToken, product)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You are not owner of this product.", decode(t, w)["message"])

	w = env.do(http.MethodPut, "/product/edit/"+id, adminToken, product)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product is edited successfully.", decode(t, w)["message"])

	w = env.do(http.MethodGet, "/product/category/list", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"kitchen"}, decode(t, w)["categories"])

	w = env.do(http.MethodGet, "/product/category/"+id, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["productList"], 1)

	w = env.do(http.MethodDelete, "/product/delete/"+id, adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/product/delete/"+id, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	_, adminToken := env.signUp(t, "admin@example.com", model.RoleAdmin)

	w := env.do(http.MethodPost, "/add/categories", buyerToken, map[string]any{"title": "garden"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/add/categories", adminToken, map[string]any{"title": "garden"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["category"].(map[string]any)["id"].(string)

	w = env.do(http.MethodGet, "/get/categories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["categories"], 1)

	w = env.do(http.MethodDelete, "/delete/categories/"+id, adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/delete/categories/"+id, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRoutes(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.signUp(t, "admin@example.com", model.RoleAdmin)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	p := env.addProduct(t, admin.ID, "Mug", "kitchen", 2)

	w := env.do(http.MethodPost, "/cart/add/item", buyerToken, map[string]any{"productId": p.ID, "orderedQuantity": 3})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Product is outnumbered.", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/cart/add/item", buyerToken, map[string]any{"productId": "6f1c1f3e-8a4b-4c59-9d1c-2b0f0e6f7a11", "orderedQuantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/cart/add/item", buyerToken, map[string]any{"productId": "nope", "orderedQuantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id.", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/cart/add/item", buyerToken, map[string]any{"productId": p.ID, "orderedQuantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/cart/add/item", buyerToken, map[string]any{"productId": p.ID, "orderedQuantity": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Item is already added to cart.", decode(t, w)["message"])

	w = env.do(http.MethodGet, "/cart/item/count", buyerToken, nil)
	assert.EqualValues(t, 1, decode(t, w)["itemCount"])

	w = env.do(http.MethodGet, "/cart/item/list", buyerToken, nil)
	lines := decode(t, w)["cartItem"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "Mug", lines[0].(map[string]any)["name"])

	w = env.do(http.MethodPut, "/cart/quantity/update/"+p.ID, buyerToken, map[string]any{"action": "dec"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Please remove item from cart.", decode(t, w)["message"])

	w = env.do(http.MethodPut, "/cart/quantity/update/"+p.ID, buyerToken, map[string]any{"action": "inc"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPut, "/cart/quantity/update/"+p.ID, buyerToken, map[string]any{"action": "inc"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Product is outnumbered.", decode(t, w)["message"])

	w = env.do(http.MethodPut, "/cart/quantity/update/"+p.ID, buyerToken, map[string]any{"action": "double"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/cart/item/delete/"+p.ID, buyerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPut, "/cart/quantity/update/"+p.ID, buyerToken, map[string]any{"action": "inc"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, "/cart/flush", buyerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart is cleared successfully.", decode(t, w)["message"])
}

func TestDashboardRoute(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.signUp(t, "admin@example.com", model.RoleAdmin)
	env.signUp(t, "b1@example.com", model.RoleBuyer)
	env.signUp(t, "b2@example.com", model.RoleBuyer)
	for i := 0; i < 5; i++ {
		env.addProduct(t, admin.ID, fmt.Sprintf("P%d", i), "misc", 1)
	}

	w := env.do(http.MethodGet, "/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dashboard := decode(t, w)["dashboard"].(map[string]any)
	assert.EqualValues(t, 5, dashboard["totalProducts"])
	assert.EqualValues(t, 2, dashboard["totalBuyers"])
	assert.Len(t, dashboard["latestProducts"], 4)
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func TestKhaltiPaymentCompleted(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.signUp(t, "admin@example.com", model.RoleAdmin)
	buyer, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	p := env.addProduct(t, admin.ID, "Lamp", "home", 5)

	w := env.do(http.MethodPost, "/cart/add/item", buyerToken, map[string]any{"productId": p.ID, "orderedQuantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/payment/khalti/start", buyerToken, map[string]any{
		"amount":      500,
		"productList": []map[string]any{{"productId": p.ID, "orderedQuantity": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Khalti Payment initiation successful", body["message"])
	assert.Equal(t, "PX1", body["paymentDetails"].(map[string]any)["pidx"])

	var order model.Order
	require.NoError(t, env.db.Where("pidx = ?", "PX1").First(&order).Error)
	assert.Equal(t, buyer.ID, order.BuyerID)
	assert.Equal(t, 500.0, order.TotalAmount)
	assert.Equal(t, model.PaymentStatusInitiated, order.PaymentStatus)
	assert.Equal(t, []model.OrderProduct{{ProductID: p.ID, OrderedQuantity: 2}}, order.ProductList)

	w = env.do(http.MethodPost, "/payment/khalti/verify", buyerToken, map[string]any{"pidx": "PX1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Khalti payment is successful", decode(t, w)["message"])

	require.NoError(t, env.db.Where("pidx = ?", "PX1").First(&order).Error)
	assert.Equal(t, model.PaymentStatusCompleted, order.PaymentStatus)

	w = env.do(http.MethodGet, "/cart/item/count", buyerToken, nil)
	assert.EqualValues(t, 0, decode(t, w)["itemCount"])

	w = env.do(http.MethodGet, "/payment/orders", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode(t, w)["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, "Completed", orders[0].(map[string]any)["paymentStatus"])

	w = env.do(http.MethodGet, "/payment/orders/PX1", buyerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, otherToken := env.signUp(t, "other@example.com", model.RoleBuyer)
	w = env.do(http.MethodGet, "/payment/orders/PX1", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order does not exist.", decode(t, w)["message"])
}

func TestKhaltiVerifyNotCompleted(t *testing.T) {
	env := newTestEnv(t)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	env.khalti.set(func(k *khaltiStub) { k.status = "Expired" })

	w := env.do(http.MethodPost, "/payment/khalti/verify", buyerToken, map[string]any{"pidx": "PX2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Khalti Payment status failed", decode(t, w)["message"])
	assert.Zero(t, countOrders(t, env.db))
}

func TestKhaltiVerifyGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)
	env.khalti.set(func(k *khaltiStub) { k.lookupCode = http.StatusNotFound })

	w := env.do(http.MethodPost, "/payment/khalti/verify", buyerToken, map[string]any{"pidx": "PX9"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Khalti Payment verification failed", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/payment/khalti/verify", buyerToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Khalti Payment verification failed", decode(t, w)["message"])
}

func TestKhaltiStartFailures(t *testing.T) {
	env := newTestEnv(t)
	_, buyerToken := env.signUp(t, "buyer@example.com", model.RoleBuyer)

	w := env.do(http.MethodPost, "/payment/khalti/start", buyerToken, map[string]any{"amount": 500, "productList": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/payment/khalti/start", buyerToken, `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.khalti.set(func(k *khaltiStub) { k.initiateCode = http.StatusUnauthorized })
	w = env.do(http.MethodPost, "/payment/khalti/start", buyerToken, map[string]any{
		"amount":      500,
		"productList": []map[string]any{{"productId": "P1", "orderedQuantity": 2}},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Payment initialization failed.", body["message"])
	assert.NotEmpty(t, body["error"])
	assert.Zero(t, countOrders(t, env.db))
}
