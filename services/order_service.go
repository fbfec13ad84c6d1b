package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ordering-service/models"
	"ordering-service/repository"

	aws_pkg "ordering-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderResponse is a paginated order listing.
type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderServiceConfig carries the scalar knobs of the order flow.
type OrderServiceConfig struct {
	TaxRate           float64
	OrderTopicArn     string
	InventoryTopicArn string
}

// OrderService defines the interface for order business logic.
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, *ServiceError)
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, *ServiceError)
	GetUserOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, *ServiceError)
	GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderResponse, *ServiceError)
	GetAllOrders(ctx context.Context, page, limit int) (*OrderResponse, *ServiceError)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus) (*models.Order, *ServiceError)
	CancelOrder(ctx context.Context, orderID uuid.UUID, userID string, staff bool) (*models.Order, *ServiceError)
}

// orderServiceImpl implements OrderService.
type orderServiceImpl struct {
	orders    repository.OrderRepository
	inventory repository.InventoryRepository
	pricing   PricingService
	tx        repository.TxManager

	snsClient         aws_pkg.SNSPublisher
	orderTopicArn     string
	inventoryTopicArn string
	metrics           *aws_pkg.MetricsClient
	promo             PromotionClient
	loyalty           LoyaltyClient

	taxRate float64
	logger  *zap.Logger
}

// NewOrderService creates a new OrderService. snsClient, metrics, promo and
// loyalty may be nil; the matching side effects are then skipped.
func NewOrderService(
	orders repository.OrderRepository,
	inventory repository.InventoryRepository,
	pricing PricingService,
	tx repository.TxManager,
	snsClient aws_pkg.SNSPublisher,
	metrics *aws_pkg.MetricsClient,
	promo PromotionClient,
	loyalty LoyaltyClient,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:            orders,
		inventory:         inventory,
		pricing:           pricing,
		tx:                tx,
		snsClient:         snsClient,
		orderTopicArn:     cfg.OrderTopicArn,
		inventoryTopicArn: cfg.InventoryTopicArn,
		metrics:           metrics,
		promo:             promo,
		loyalty:           loyalty,
		taxRate:           cfg.TaxRate,
		logger:            logger,
	}
}

// CreateOrder prices the requested lines, deducts every ingredient they
// consume and persists the order, all inside one transaction. Either the
// order commits with its full snapshot or nothing changes.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, *ServiceError) {
	if svcErr := validateCreateOrder(req); svcErr != nil {
		return nil, svcErr
	}

	var userID *uuid.UUID
	if req.UserID != "" {
		uid, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, &ServiceError{StatusCode: 400, Message: "Invalid user ID format"}
		}
		userID = &uid
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var deductions []models.InventoryDeduction
	subtotal := 0.0

	for _, line := range req.Items {
		catalogID, err := uuid.Parse(line.CatalogItemID)
		if err != nil {
			return nil, &ServiceError{StatusCode: 400, Message: fmt.Sprintf("Invalid catalog item ID: %s", line.CatalogItemID)}
		}

		resolved, err := s.pricing.ResolveLine(ctx, catalogID, line.Quantity, line.Customizations)
		if err != nil {
			if errors.Is(err, ErrProductUnavailable) {
				return nil, &ServiceError{StatusCode: 422, Message: err.Error()}
			}
			s.logger.Error("Failed to resolve order line",
				zap.String("catalog_item_id", line.CatalogItemID),
				zap.Error(err),
			)
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to price order"}
		}

		items = append(items, resolved.Item)
		deductions = append(deductions, resolved.Deductions...)
		subtotal += resolved.Item.LineTotal
	}

	subtotal = Round2(subtotal)
	discount := Round2(req.Discount)
	if discount > subtotal {
		discount = subtotal
	}
	tax := Round2((subtotal - discount) * s.taxRate)
	tip := Round2(req.Tip)
	total := Round2(subtotal + tax + tip - discount)

	order := &models.Order{
		OrderNumber:   generateOrderNumber(),
		UserID:        userID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Status:        models.StatusPending,
		PaymentStatus: "unpaid",
		Subtotal:      subtotal,
		Tax:           tax,
		Tip:           tip,
		Discount:      discount,
		Total:         total,
		PromoCode:     req.PromoCode,
		RewardID:      req.RewardID,
		Items:         items,
	}

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		snapshot := make([]models.SnapshotEntry, 0, len(deductions))
		for _, d := range deductions {
			mv, err := s.inventory.Deduct(tx, d.InventoryItemID, d.Quantity)
			if err != nil {
				return err
			}
			snapshot = append(snapshot, models.SnapshotEntry{
				InventoryItemID: d.InventoryItemID,
				ItemName:        mv.Item.Name,
				Quantity:        d.Quantity,
				Reason:          d.Reason,
				Before:          mv.Before,
				After:           mv.After,
			})
		}
		order.Snapshot = snapshot
		return s.orders.CreateTx(tx, order)
	})
	if err != nil {
		var stockErr *repository.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			s.logger.Warn("Order rejected, insufficient stock",
				zap.String("item", stockErr.ItemName),
				zap.Float64("requested", stockErr.Requested),
				zap.Float64("available", stockErr.Available),
			)
			s.recordCount(aws_pkg.MetricInsufficientStock)
			return nil, &ServiceError{StatusCode: 409, Message: fmt.Sprintf("Insufficient stock for %s", stockErr.ItemName)}
		case errors.Is(err, repository.ErrItemNotFound):
			return nil, &ServiceError{StatusCode: 422, Message: "An ingredient for this order is no longer stocked"}
		}
		s.logger.Error("Order transaction failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create order"}
	}

	s.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
		zap.Int("lines", len(order.Items)),
		zap.Int("deductions", len(order.Snapshot)),
	)
	s.afterCreate(order)

	return order, nil
}

// GetOrderByID retrieves any order. Staff only; customers go through
// GetUserOrder.
func (s *orderServiceImpl) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("Failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	return order, nil
}

// GetUserOrder retrieves one of the caller's own orders.
func (s *orderServiceImpl) GetUserOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, *ServiceError) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Message: "Invalid user ID format"}
	}

	order, err := s.orders.FindByIDAndUserID(ctx, orderID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("Failed to fetch order",
			zap.String("order_id", orderID.String()),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	return order, nil
}

// GetUserOrders retrieves paginated orders for a specific user.
func (s *orderServiceImpl) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderResponse, *ServiceError) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Message: "Invalid user ID format"}
	}

	orders, total, err := s.orders.FindByUserID(ctx, uid, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch user orders", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}

	return &OrderResponse{
		Orders: orders,
		Meta:   buildMeta(page, limit, total),
	}, nil
}

// GetAllOrders retrieves paginated orders across all customers (staff only).
func (s *orderServiceImpl) GetAllOrders(ctx context.Context, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orders.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch all orders", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}

	return &OrderResponse{
		Orders: orders,
		Meta:   buildMeta(page, limit, total),
	}, nil
}

// UpdateStatus moves an order one step through its lifecycle and stamps the
// matching timestamp. Moving to cancelled goes through the restore path.
func (s *orderServiceImpl) UpdateStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus) (*models.Order, *ServiceError) {
	if !target.Valid() {
		return nil, &ServiceError{StatusCode: 400, Message: fmt.Sprintf("Unknown status: %s", target)}
	}

	order, svcErr := s.GetOrderByID(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	if target == models.StatusCancelled {
		return s.cancel(ctx, order)
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, &ServiceError{
			StatusCode: 409,
			Message:    fmt.Sprintf("Cannot move order from %s to %s", order.Status, target),
		}
	}

	now := time.Now()
	updates := map[string]interface{}{"status": target}
	switch target {
	case models.StatusConfirmed:
		if order.EstimatedReadyAt == nil {
			eta := now.Add(estimatePrepTime(order.TotalUnits()))
			updates["estimated_ready_at"] = eta
			order.EstimatedReadyAt = &eta
		}
	case models.StatusPreparing:
		updates["prep_started_at"] = now
		order.PrepStartedAt = &now
	case models.StatusReady:
		updates["ready_at"] = now
		order.ReadyAt = &now
	case models.StatusCompleted:
		updates["picked_up_at"] = now
		order.PickedUpAt = &now
	}

	prev := order.Status
	if err := s.orders.TransitionStatus(ctx, orderID, prev, updates); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, &ServiceError{StatusCode: 409, Message: "Order was updated concurrently, reload and retry"}
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("Failed to update order status",
			zap.String("order_id", orderID.String()),
			zap.String("to", string(target)),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update order status"}
	}

	order.Status = target
	s.logger.Info("Order status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(prev)),
		zap.String("to", string(target)),
	)

	s.publishStatusChangedEvent(ctx, order, prev)

	if target == models.StatusCompleted {
		s.recordCount(aws_pkg.MetricOrdersCompleted)
		s.awardLoyalty(order)
	}

	return order, nil
}

// CancelOrder cancels an order and returns its snapshot to stock. Customers
// may only cancel their own orders; staff may cancel any.
func (s *orderServiceImpl) CancelOrder(ctx context.Context, orderID uuid.UUID, userID string, staff bool) (*models.Order, *ServiceError) {
	var order *models.Order
	var svcErr *ServiceError
	if staff {
		order, svcErr = s.GetOrderByID(ctx, orderID)
	} else {
		order, svcErr = s.GetUserOrder(ctx, userID, orderID)
	}
	if svcErr != nil {
		return nil, svcErr
	}

	return s.cancel(ctx, order)
}

// cancel restores every snapshot entry and flips the status to cancelled in
// one transaction. A failed restore leaves the order untouched.
func (s *orderServiceImpl) cancel(ctx context.Context, order *models.Order) (*models.Order, *ServiceError) {
	if !order.Status.Cancellable() {
		return nil, &ServiceError{
			StatusCode: 409,
			Message:    fmt.Sprintf("Order in status %s can no longer be cancelled", order.Status),
		}
	}

	prev := order.Status
	now := time.Now()
	restoreReason := "order_cancelled:" + order.ID.String()

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		for _, entry := range order.Snapshot {
			if _, err := s.inventory.Restore(tx, entry.InventoryItemID, entry.Quantity); err != nil {
				return fmt.Errorf("restore %s: %w", entry.ItemName, err)
			}
		}
		return s.orders.TransitionStatusTx(tx, order.ID, prev, map[string]interface{}{
			"status":      models.StatusCancelled,
			"canceled_at": now,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, &ServiceError{StatusCode: 409, Message: "Order was updated concurrently, reload and retry"}
		case errors.Is(err, repository.ErrItemNotFound):
			s.logger.Error("Cancellation aborted, snapshot references missing inventory row",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
			return nil, &ServiceError{StatusCode: 409, Message: "Cancellation failed: inventory record missing"}
		}
		s.logger.Error("Cancellation transaction failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to cancel order"}
	}

	order.Status = models.StatusCancelled
	order.CanceledAt = &now

	s.logger.Info("Order cancelled, stock restored",
		zap.String("order_number", order.OrderNumber),
		zap.String("reason", restoreReason),
		zap.Int("restored_entries", len(order.Snapshot)),
	)
	s.recordCount(aws_pkg.MetricOrdersCancelled)
	s.publishCancelledEvent(ctx, order)

	return order, nil
}

func validateCreateOrder(req *models.CreateOrderRequest) *ServiceError {
	if strings.TrimSpace(req.CustomerName) == "" {
		return &ServiceError{StatusCode: 400, Message: "Customer name is required"}
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return &ServiceError{StatusCode: 400, Message: "Customer email is required"}
	}
	if len(req.Items) == 0 {
		return &ServiceError{StatusCode: 400, Message: "At least one item is required"}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &ServiceError{StatusCode: 400, Message: "Item quantity must be at least 1"}
		}
	}
	if req.Tip < 0 {
		return &ServiceError{StatusCode: 400, Message: "Tip cannot be negative"}
	}
	if req.Discount < 0 {
		return &ServiceError{StatusCode: 400, Message: "Discount cannot be negative"}
	}
	return nil
}

func generateOrderNumber() string {
	return "ORD-" + time.Now().Format("20060102-150405") + "-" + uuid.New().String()[:8]
}

// estimatePrepTime is 15 minutes plus 2 minutes per three drinks, capped at
// half an hour.
func estimatePrepTime(units int) time.Duration {
	d := 15*time.Minute + time.Duration(units/3)*2*time.Minute
	if d > 30*time.Minute {
		d = 30 * time.Minute
	}
	return d
}

func buildMeta(page, limit int, total int64) MetaData {
	return MetaData{
		Page:        page,
		Limit:       limit,
		TotalOrders: total,
		TotalPages:  calculateTotalPages(total, limit),
		HasMore:     total > int64(page*limit),
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// afterCreate runs the post-commit side effects: the created event, the
// low-stock sweep and the promo redemption callback. None of them can fail
// the order.
func (s *orderServiceImpl) afterCreate(order *models.Order) {
	s.recordCount(aws_pkg.MetricOrdersCreated)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.publishCreatedEvent(ctx, order)
		s.alertLowStock(ctx)

		if s.promo != nil && order.PromoCode != "" {
			if err := s.promo.RedeemCode(ctx, order.PromoCode, order.OrderNumber, order.Total); err != nil {
				s.logger.Warn("Promo redemption callback failed",
					zap.String("promo_code", order.PromoCode),
					zap.String("order_number", order.OrderNumber),
					zap.Error(err),
				)
			}
		}
	}()
}

// alertLowStock publishes an alert for every item at or below its threshold.
func (s *orderServiceImpl) alertLowStock(ctx context.Context) {
	items, err := s.inventory.FindLowStock(ctx)
	if err != nil {
		s.logger.Error("Low stock sweep failed", zap.Error(err))
		return
	}
	if len(items) == 0 {
		return
	}

	if s.metrics != nil {
		_ = s.metrics.RecordValue(ctx, aws_pkg.MetricInventoryLow, float64(len(items)), nil)
	}
	if s.snsClient == nil || s.inventoryTopicArn == "" {
		return
	}

	for _, item := range items {
		event := models.LowStockEvent{
			EventType:         "inventory_low_stock",
			InventoryItemID:   item.ID.String(),
			Name:              item.Name,
			Unit:              item.Unit,
			QuantityOnHand:    item.QuantityOnHand,
			LowStockThreshold: item.LowStockThreshold,
			Timestamp:         time.Now(),
		}
		s.publish(ctx, s.inventoryTopicArn, event, "low_stock_alert")
	}
}

func (s *orderServiceImpl) awardLoyalty(order *models.Order) {
	if s.loyalty == nil || order.UserID == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.loyalty.RecordPickup(ctx, order.UserID.String(), order.OrderNumber, order.Total); err != nil {
			s.logger.Warn("Loyalty callback failed",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
		}
	}()
}

func (s *orderServiceImpl) publishCreatedEvent(ctx context.Context, order *models.Order) {
	userID := ""
	if order.UserID != nil {
		userID = order.UserID.String()
	}
	event := models.OrderCreatedEvent{
		EventType:    "order_created",
		OrderID:      order.ID.String(),
		OrderNumber:  order.OrderNumber,
		UserID:       userID,
		CustomerName: order.CustomerName,
		Total:        order.Total,
		ItemCount:    len(order.Items),
		Timestamp:    time.Now(),
	}
	s.publish(ctx, s.orderTopicArn, event, "order_created")
}

func (s *orderServiceImpl) publishStatusChangedEvent(ctx context.Context, order *models.Order, prev models.OrderStatus) {
	event := models.OrderStatusChangedEvent{
		EventType:        "order_status_changed",
		OrderID:          order.ID.String(),
		OrderNumber:      order.OrderNumber,
		From:             prev,
		To:               order.Status,
		EstimatedReadyAt: order.EstimatedReadyAt,
		Timestamp:        time.Now(),
	}
	s.publish(ctx, s.orderTopicArn, event, "order_status_changed")
}

func (s *orderServiceImpl) publishCancelledEvent(ctx context.Context, order *models.Order) {
	event := models.OrderCancelledEvent{
		EventType:     "order_cancelled",
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		RestoredItems: len(order.Snapshot),
		Timestamp:     time.Now(),
	}
	s.publish(ctx, s.orderTopicArn, event, "order_cancelled")
}

// publish marshals and sends one event, logging instead of failing. Events
// are best-effort; the database is the source of truth.
func (s *orderServiceImpl) publish(ctx context.Context, topicArn string, event interface{}, kind string) {
	if s.snsClient == nil || topicArn == "" {
		return
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal event", zap.String("kind", kind), zap.Error(err))
		return
	}

	if err := s.snsClient.Publish(ctx, topicArn, eventBytes); err != nil {
		s.logger.Error("Failed to publish event", zap.String("kind", kind), zap.Error(err))
		return
	}

	s.logger.Info("Published event", zap.String("kind", kind))
}

func (s *orderServiceImpl) recordCount(metric string) {
	if s.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metrics.RecordCount(ctx, metric, nil); err != nil {
			s.logger.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
		}
	}()
}
