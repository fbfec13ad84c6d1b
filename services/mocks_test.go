package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"ordering-service/models"
	"ordering-service/repository"
	"ordering-service/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	orderTopic     = "arn:aws:sns:us-east-1:000000000000:order-events"
	inventoryTopic = "arn:aws:sns:us-east-1:000000000000:inventory-alerts"
)

var testDefaults = services.ConsumptionDefaults{
	EspressoShotGrams: 18,
	MilkServingMl:     150,
	SyrupPumpMl:       15,
	ColdFoamMl:        100,
	ToppingGrams:      10,
}

// --- Mock Catalog ---

type fakeCatalog struct {
	items map[uuid.UUID]*models.CatalogItem
}

func newFakeCatalog(items ...*models.CatalogItem) *fakeCatalog {
	c := &fakeCatalog{items: make(map[uuid.UUID]*models.CatalogItem)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *fakeCatalog) GetItem(_ context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, repository.ErrCatalogItemNotFound
	}
	cp := *item
	return &cp, nil
}

// --- Mock Inventory Repository ---

type stockCall struct {
	id  uuid.UUID
	qty float64
}

type fakeInventory struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*models.InventoryItem
	deducted []stockCall
	restored []stockCall
}

func newFakeInventory(items ...*models.InventoryItem) *fakeInventory {
	inv := &fakeInventory{items: make(map[uuid.UUID]*models.InventoryItem)}
	for _, it := range items {
		cp := *it
		inv.items[it.ID] = &cp
	}
	return inv
}

func (f *fakeInventory) Get(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeInventory) Create(_ context.Context, item *models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeInventory) AddStock(_ context.Context, id uuid.UUID, quantity float64, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return repository.ErrItemNotFound
	}
	item.QuantityOnHand += quantity
	for k, v := range updates {
		switch k {
		case "name":
			item.Name = v.(string)
		case "unit":
			item.Unit = v.(string)
		case "low_stock_threshold":
			item.LowStockThreshold = v.(float64)
		case "is_available":
			item.IsAvailable = v.(bool)
		}
	}
	return nil
}

func (f *fakeInventory) FindAll(_ context.Context, _, _ int) ([]models.InventoryItem, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.InventoryItem
	for _, it := range f.items {
		result = append(result, *it)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, int64(len(result)), nil
}

func (f *fakeInventory) FindLowStock(_ context.Context) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.InventoryItem
	for _, it := range f.items {
		if it.IsLow() {
			result = append(result, *it)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (f *fakeInventory) Deduct(_ *gorm.DB, id uuid.UUID, quantity float64) (*repository.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	if item.QuantityOnHand < quantity {
		return nil, &repository.InsufficientStockError{
			ItemID:    id,
			ItemName:  item.Name,
			Requested: quantity,
			Available: item.QuantityOnHand,
		}
	}
	before := item.QuantityOnHand
	item.QuantityOnHand -= quantity
	f.deducted = append(f.deducted, stockCall{id: id, qty: quantity})
	cp := *item
	return &repository.Movement{Item: cp, Before: before, After: item.QuantityOnHand}, nil
}

func (f *fakeInventory) Restore(_ *gorm.DB, id uuid.UUID, quantity float64) (*repository.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	before := item.QuantityOnHand
	item.QuantityOnHand += quantity
	f.restored = append(f.restored, stockCall{id: id, qty: quantity})
	cp := *item
	return &repository.Movement{Item: cp, Before: before, After: item.QuantityOnHand}, nil
}

func (f *fakeInventory) remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
}

func (f *fakeInventory) onHand(id uuid.UUID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[id]; ok {
		return item.QuantityOnHand
	}
	return -1
}

func (f *fakeInventory) snapshot() map[uuid.UUID]models.InventoryItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := make(map[uuid.UUID]models.InventoryItem, len(f.items))
	for id, it := range f.items {
		snap[id] = *it
	}
	return snap
}

func (f *fakeInventory) reset(snap map[uuid.UUID]models.InventoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[uuid.UUID]*models.InventoryItem, len(snap))
	for id, it := range snap {
		cp := it
		f.items[id] = &cp
	}
}

// --- Mock Order Repository ---

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrders) CreateTx(_ *gorm.DB, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	for i := range order.Snapshot {
		order.Snapshot[i].OrderID = order.ID
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrders) FindByIDAndUserID(_ context.Context, id, userID uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.UserID == nil || *order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrders) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Order
	for _, o := range f.orders {
		if o.UserID != nil && *o.UserID == userID {
			result = append(result, *o)
		}
	}
	return result, int64(len(result)), nil
}

func (f *fakeOrders) FindAll(_ context.Context, _, _ int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Order
	for _, o := range f.orders {
		result = append(result, *o)
	}
	return result, int64(len(result)), nil
}

func (f *fakeOrders) TransitionStatus(_ context.Context, id uuid.UUID, from models.OrderStatus, updates map[string]interface{}) error {
	return f.TransitionStatusTx(nil, id, from, updates)
}

func (f *fakeOrders) TransitionStatusTx(_ *gorm.DB, id uuid.UUID, from models.OrderStatus, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status != from {
		return repository.ErrStatusConflict
	}
	for k, v := range updates {
		switch k {
		case "status":
			order.Status = v.(models.OrderStatus)
		case "estimated_ready_at":
			t := v.(time.Time)
			order.EstimatedReadyAt = &t
		case "prep_started_at":
			t := v.(time.Time)
			order.PrepStartedAt = &t
		case "ready_at":
			t := v.(time.Time)
			order.ReadyAt = &t
		case "picked_up_at":
			t := v.(time.Time)
			order.PickedUpAt = &t
		case "canceled_at":
			t := v.(time.Time)
			order.CanceledAt = &t
		case "payment_status":
			order.PaymentStatus = v.(string)
		}
	}
	return nil
}

func (f *fakeOrders) get(id uuid.UUID) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// --- Mock Transaction Manager ---

// fakeTx mimics transactional rollback for the inventory fake: when the
// function fails, stock levels are restored to their pre-transaction state.
type fakeTx struct {
	inv      *fakeInventory
	beginErr error
}

func (f *fakeTx) Do(_ context.Context, fn func(tx *gorm.DB) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	var snap map[uuid.UUID]models.InventoryItem
	if f.inv != nil {
		snap = f.inv.snapshot()
	}
	if err := fn(nil); err != nil {
		if f.inv != nil {
			f.inv.reset(snap)
		}
		return err
	}
	return nil
}

// --- Mock SNS Publisher ---

type publishedMessage struct {
	topicArn string
	body     []byte
}

type mockSNSPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedMessage{
		topicArn: topicArn,
		body:     append([]byte(nil), message...),
	})
	return nil
}

func (m *mockSNSPublisher) countOnTopic(topicArn string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.published {
		if p.topicArn == topicArn {
			n++
		}
	}
	return n
}

func (m *mockSNSPublisher) lastOnTopic(topicArn string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].topicArn == topicArn {
			return m.published[i].body
		}
	}
	return nil
}

// --- Mock Partner Clients ---

type fakePromotionClient struct {
	mu       sync.Mutex
	redeemed []string
}

func (f *fakePromotionClient) RedeemCode(_ context.Context, code, _ string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemed = append(f.redeemed, code)
	return nil
}

func (f *fakePromotionClient) redeemedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.redeemed...)
}

type fakeLoyaltyClient struct {
	mu      sync.Mutex
	pickups []string
}

func (f *fakeLoyaltyClient) RecordPickup(_ context.Context, _, orderNumber string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickups = append(f.pickups, orderNumber)
	return nil
}

func (f *fakeLoyaltyClient) recordedPickups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pickups...)
}

// --- Mock Idempotency Store ---

type fakeIdempotency struct {
	mu   sync.Mutex
	seen map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{seen: make(map[string]string)}
}

func (f *fakeIdempotency) Seen(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[key]
	return ok, nil
}

func (f *fakeIdempotency) Mark(_ context.Context, key, orderID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[key] = orderID
	return nil
}

// --- Builders ---

func stockedItem(name, unit string, qty, threshold float64) *models.InventoryItem {
	return &models.InventoryItem{
		ID:                uuid.New(),
		Name:              name,
		Unit:              unit,
		QuantityOnHand:    qty,
		LowStockThreshold: threshold,
		IsAvailable:       true,
	}
}

func menuItem(name string, price float64, recipe ...models.RecipeEntry) *models.CatalogItem {
	return &models.CatalogItem{
		ID:          uuid.New(),
		Name:        name,
		Category:    "espresso_drinks",
		BasePrice:   price,
		IsAvailable: true,
		Recipe:      recipe,
	}
}

func newTestOrderService(
	catalog *fakeCatalog,
	inv *fakeInventory,
	orders *fakeOrders,
	sns *mockSNSPublisher,
	promo services.PromotionClient,
	loyalty services.LoyaltyClient,
) services.OrderService {
	logger, _ := zap.NewDevelopment()
	pricing := services.NewPricingService(catalog, inv, testDefaults, logger)
	return services.NewOrderService(
		orders,
		inv,
		pricing,
		&fakeTx{inv: inv},
		sns,
		nil,
		promo,
		loyalty,
		services.OrderServiceConfig{
			TaxRate:           0.0875,
			OrderTopicArn:     orderTopic,
			InventoryTopicArn: inventoryTopic,
		},
		logger,
	)
}
