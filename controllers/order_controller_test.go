package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ordering-service/controllers"
	"ordering-service/models"
	"ordering-service/routes"
	"ordering-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock OrderService ---

type mockOrderService struct {
	createFn     func(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, *services.ServiceError)
	getFn        func(ctx context.Context, orderID uuid.UUID) (*models.Order, *services.ServiceError)
	getUserFn    func(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, *services.ServiceError)
	listUserFn   func(ctx context.Context, userID string, page, limit int) (*services.OrderResponse, *services.ServiceError)
	listAllFn    func(ctx context.Context, page, limit int) (*services.OrderResponse, *services.ServiceError)
	updateFn     func(ctx context.Context, orderID uuid.UUID, target models.OrderStatus) (*models.Order, *services.ServiceError)
	cancelFn     func(ctx context.Context, orderID uuid.UUID, userID string, staff bool) (*models.Order, *services.ServiceError)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, *services.ServiceError) {
	return m.createFn(ctx, req)
}
func (m *mockOrderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, *services.ServiceError) {
	return m.getFn(ctx, orderID)
}
func (m *mockOrderService) GetUserOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, *services.ServiceError) {
	return m.getUserFn(ctx, userID, orderID)
}
func (m *mockOrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*services.OrderResponse, *services.ServiceError) {
	return m.listUserFn(ctx, userID, page, limit)
}
func (m *mockOrderService) GetAllOrders(ctx context.Context, page, limit int) (*services.OrderResponse, *services.ServiceError) {
	return m.listAllFn(ctx, page, limit)
}
func (m *mockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus) (*models.Order, *services.ServiceError) {
	return m.updateFn(ctx, orderID, target)
}
func (m *mockOrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, userID string, staff bool) (*models.Order, *services.ServiceError) {
	return m.cancelFn(ctx, orderID, userID, staff)
}

// --- Mock InventoryService ---

type mockInventoryService struct {
	upsertFn  func(ctx context.Context, req *models.UpsertInventoryRequest) (*models.InventoryItem, *services.ServiceError)
	getFn     func(ctx context.Context, id uuid.UUID) (*models.InventoryItem, *services.ServiceError)
	listFn    func(ctx context.Context, page, limit int) ([]models.InventoryItem, int64, *services.ServiceError)
	lowFn     func(ctx context.Context) ([]models.InventoryItem, *services.ServiceError)
}

func (m *mockInventoryService) UpsertItem(ctx context.Context, req *models.UpsertInventoryRequest) (*models.InventoryItem, *services.ServiceError) {
	return m.upsertFn(ctx, req)
}
func (m *mockInventoryService) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, *services.ServiceError) {
	return m.getFn(ctx, id)
}
func (m *mockInventoryService) ListItems(ctx context.Context, page, limit int) ([]models.InventoryItem, int64, *services.ServiceError) {
	return m.listFn(ctx, page, limit)
}
func (m *mockInventoryService) ListLowStock(ctx context.Context) ([]models.InventoryItem, *services.ServiceError) {
	return m.lowFn(ctx)
}

// --- Helpers ---

func setupRouter(orderSvc services.OrderService, invSvc services.InventoryService) *gin.Engine {
	r := gin.New()
	oc := controllers.NewOrderController(orderSvc)
	ic := controllers.NewInventoryController(invSvc)
	routes.RegisterRoutes(r, oc, ic, []string{"http://localhost:3000"})
	return r
}

func doRequest(r *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, path, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func orderPayload() []byte {
	body, _ := json.Marshal(models.CreateOrderRequest{
		CustomerName:  "Robin Park",
		CustomerEmail: "robin@example.com",
		Items: []models.CreateOrderItem{
			{CatalogItemID: uuid.New().String(), Quantity: 1},
		},
	})
	return body
}

// --- Tests ---

func TestController_CreateOrder_Guest(t *testing.T) {
	var captured *models.CreateOrderRequest
	svc := &mockOrderService{
		createFn: func(_ context.Context, req *models.CreateOrderRequest) (*models.Order, *services.ServiceError) {
			captured = req
			return &models.Order{ID: uuid.New(), OrderNumber: "ORD-TEST", Status: models.StatusPending}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodPost, "/orders", orderPayload(), nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, captured)
	assert.Empty(t, captured.UserID, "walk-in orders carry no user")

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotNil(t, resp["order"])
}

func TestController_CreateOrder_IdentityHeaderSetsUser(t *testing.T) {
	userID := uuid.New().String()
	var captured *models.CreateOrderRequest
	svc := &mockOrderService{
		createFn: func(_ context.Context, req *models.CreateOrderRequest) (*models.Order, *services.ServiceError) {
			captured = req
			return &models.Order{ID: uuid.New(), OrderNumber: "ORD-TEST"}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodPost, "/orders", orderPayload(), map[string]string{"X-User-ID": userID})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, userID, captured.UserID)
}

func TestController_CreateOrder_MalformedBody(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockInventoryService{})

	w := doRequest(r, http.MethodPost, "/orders", []byte(`{"items": "nope"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_CreateOrder_ServiceErrorPassthrough(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ *models.CreateOrderRequest) (*models.Order, *services.ServiceError) {
			return nil, &services.ServiceError{StatusCode: 409, Message: "Insufficient stock for Espresso Beans"}
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodPost, "/orders", orderPayload(), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Contains(t, resp["error"], "Espresso Beans")
}

func TestController_GetOrders_RequiresIdentity(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestController_GetOrders_ForwardsPagination(t *testing.T) {
	userID := uuid.New().String()
	var gotUser string
	var gotPage, gotLimit int
	svc := &mockOrderService{
		listUserFn: func(_ context.Context, uid string, page, limit int) (*services.OrderResponse, *services.ServiceError) {
			gotUser, gotPage, gotLimit = uid, page, limit
			return &services.OrderResponse{Orders: []models.Order{}}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/orders?page=3&limit=25", nil, map[string]string{"X-User-ID": userID})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, 3, gotPage)
	assert.Equal(t, 25, gotLimit)
}

func TestController_GetOrders_ClampsLimit(t *testing.T) {
	var gotLimit int
	svc := &mockOrderService{
		listUserFn: func(_ context.Context, _ string, _, limit int) (*services.OrderResponse, *services.ServiceError) {
			gotLimit = limit
			return &services.OrderResponse{}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/orders?limit=500", nil, map[string]string{"X-User-ID": uuid.New().String()})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, gotLimit)
}

func TestController_GetOrderByID_CustomerScoped(t *testing.T) {
	userID := uuid.New().String()
	orderID := uuid.New()
	var gotUser string
	svc := &mockOrderService{
		getUserFn: func(_ context.Context, uid string, oid uuid.UUID) (*models.Order, *services.ServiceError) {
			gotUser = uid
			return &models.Order{ID: oid, OrderNumber: "ORD-TEST"}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/orders/"+orderID.String(), nil, map[string]string{"X-User-ID": userID})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUser)
}

func TestController_GetOrderByID_InvalidID(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/orders/not-a-uuid", nil, map[string]string{"X-User-ID": uuid.New().String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_AdminGetOrder_StaffSeesAny(t *testing.T) {
	orderID := uuid.New()
	called := false
	svc := &mockOrderService{
		getFn: func(_ context.Context, oid uuid.UUID) (*models.Order, *services.ServiceError) {
			called = true
			assert.Equal(t, orderID, oid)
			return &models.Order{ID: oid}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/admin/orders/"+orderID.String(), nil, map[string]string{
		"X-User-ID":   uuid.New().String(),
		"X-User-Role": "staff",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called, "staff path must not be user-scoped")
}

func TestController_AdminRoutes_RejectCustomers(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/admin/orders", nil, map[string]string{"X-User-ID": uuid.New().String()})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestController_UpdateStatus_Staff(t *testing.T) {
	orderID := uuid.New()
	var gotTarget models.OrderStatus
	svc := &mockOrderService{
		updateFn: func(_ context.Context, _ uuid.UUID, target models.OrderStatus) (*models.Order, *services.ServiceError) {
			gotTarget = target
			return &models.Order{ID: orderID, Status: target}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	body, _ := json.Marshal(models.UpdateStatusRequest{Status: models.StatusConfirmed})
	w := doRequest(r, http.MethodPatch, "/admin/orders/"+orderID.String()+"/status", body, map[string]string{
		"X-User-ID":   uuid.New().String(),
		"X-User-Role": "staff",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusConfirmed, gotTarget)
}

func TestController_CancelOrder_Customer(t *testing.T) {
	userID := uuid.New().String()
	orderID := uuid.New()
	var gotUser string
	var gotStaff bool
	svc := &mockOrderService{
		cancelFn: func(_ context.Context, _ uuid.UUID, uid string, staff bool) (*models.Order, *services.ServiceError) {
			gotUser, gotStaff = uid, staff
			return &models.Order{ID: orderID, Status: models.StatusCancelled}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil, map[string]string{"X-User-ID": userID})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUser)
	assert.False(t, gotStaff)
}

func TestController_CancelOrder_AdminBypassesOwnership(t *testing.T) {
	orderID := uuid.New()
	var gotStaff bool
	svc := &mockOrderService{
		cancelFn: func(_ context.Context, _ uuid.UUID, _ string, staff bool) (*models.Order, *services.ServiceError) {
			gotStaff = staff
			return &models.Order{ID: orderID, Status: models.StatusCancelled}, nil
		},
	}
	r := setupRouter(svc, &mockInventoryService{})

	w := doRequest(r, http.MethodPost, "/admin/orders/"+orderID.String()+"/cancel", nil, map[string]string{
		"X-User-ID":   uuid.New().String(),
		"X-User-Role": "admin",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotStaff)
}

func TestController_Inventory_UpsertAdminOnly(t *testing.T) {
	called := false
	invSvc := &mockInventoryService{
		upsertFn: func(_ context.Context, req *models.UpsertInventoryRequest) (*models.InventoryItem, *services.ServiceError) {
			called = true
			return &models.InventoryItem{ID: req.ID, Name: req.Name}, nil
		},
	}
	r := setupRouter(&mockOrderService{}, invSvc)

	body, _ := json.Marshal(models.UpsertInventoryRequest{
		ID:                uuid.New(),
		Name:              "Espresso Beans",
		Unit:              "g",
		Quantity:          5000,
		LowStockThreshold: 500,
	})

	w := doRequest(r, http.MethodPost, "/inventory", body, map[string]string{
		"X-User-ID":   uuid.New().String(),
		"X-User-Role": "staff",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called, "staff cannot seed inventory")

	w = doRequest(r, http.MethodPost, "/inventory", body, map[string]string{
		"X-User-ID":   uuid.New().String(),
		"X-User-Role": "admin",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestController_Inventory_LowStock(t *testing.T) {
	invSvc := &mockInventoryService{
		lowFn: func(_ context.Context) ([]models.InventoryItem, *services.ServiceError) {
			return []models.InventoryItem{
				{ID: uuid.New(), Name: "Espresso Beans", QuantityOnHand: 80, LowStockThreshold: 100},
			}, nil
		},
	}
	r := setupRouter(&mockOrderService{}, invSvc)

	w := doRequest(r, http.MethodGet, "/inventory/low-stock", nil, map[string]string{
		"X-User-ID":   uuid.New().String(),
		"X-User-Role": "staff",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []models.InventoryItem `json:"items"`
		Count int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Espresso Beans", resp.Items[0].Name)
}

func TestController_Inventory_AnonymousForbidden(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockInventoryService{})

	w := doRequest(r, http.MethodGet, "/inventory", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
