package services

import (
	"context"
	"errors"

	"ordering-service/models"
	"ordering-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService defines the staff-facing inventory operations. Order-driven
// stock movement never goes through here; it runs inside the order
// transaction.
type InventoryService interface {
	UpsertItem(ctx context.Context, req *models.UpsertInventoryRequest) (*models.InventoryItem, *ServiceError)
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, *ServiceError)
	ListItems(ctx context.Context, page, limit int) ([]models.InventoryItem, int64, *ServiceError)
	ListLowStock(ctx context.Context) ([]models.InventoryItem, *ServiceError)
}

type inventoryServiceImpl struct {
	inventory repository.InventoryRepository
	logger    *zap.Logger
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(inventory repository.InventoryRepository, logger *zap.Logger) InventoryService {
	return &inventoryServiceImpl{inventory: inventory, logger: logger}
}

// UpsertItem creates an item or restocks an existing one. The request
// quantity is added to the current on-hand count, never assigned over it, so
// a restock can race with order deductions without losing either write.
func (s *inventoryServiceImpl) UpsertItem(ctx context.Context, req *models.UpsertInventoryRequest) (*models.InventoryItem, *ServiceError) {
	updates := map[string]interface{}{
		"name":                req.Name,
		"unit":                req.Unit,
		"low_stock_threshold": req.LowStockThreshold,
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}

	err := s.inventory.AddStock(ctx, req.ID, req.Quantity, updates)
	if errors.Is(err, repository.ErrItemNotFound) {
		item := &models.InventoryItem{
			ID:                req.ID,
			Name:              req.Name,
			Unit:              req.Unit,
			QuantityOnHand:    req.Quantity,
			LowStockThreshold: req.LowStockThreshold,
			IsAvailable:       req.IsAvailable == nil || *req.IsAvailable,
		}
		if err := s.inventory.Create(ctx, item); err != nil {
			s.logger.Error("Failed to create inventory item",
				zap.String("id", req.ID.String()),
				zap.String("name", req.Name),
				zap.Error(err),
			)
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to create inventory item"}
		}
		s.logger.Info("Inventory item created",
			zap.String("name", item.Name),
			zap.Float64("quantity", item.QuantityOnHand),
			zap.String("unit", item.Unit),
		)
		return item, nil
	}
	if err != nil {
		s.logger.Error("Failed to restock inventory item", zap.String("id", req.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to restock inventory item"}
	}

	item, err := s.inventory.Get(ctx, req.ID)
	if err != nil {
		s.logger.Error("Failed to reload inventory item after restock", zap.String("id", req.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load inventory item"}
	}

	s.logger.Info("Inventory restocked",
		zap.String("name", item.Name),
		zap.Float64("added", req.Quantity),
		zap.Float64("on_hand", item.QuantityOnHand),
	)
	return item, nil
}

// GetItem retrieves one inventory item.
func (s *inventoryServiceImpl) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, *ServiceError) {
	item, err := s.inventory.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Inventory item not found"}
		}
		s.logger.Error("Failed to fetch inventory item", zap.String("id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch inventory item"}
	}
	return item, nil
}

// ListItems returns paginated inventory items.
func (s *inventoryServiceImpl) ListItems(ctx context.Context, page, limit int) ([]models.InventoryItem, int64, *ServiceError) {
	items, total, err := s.inventory.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list inventory", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to list inventory"}
	}
	return items, total, nil
}

// ListLowStock returns every item at or below its alert threshold.
func (s *inventoryServiceImpl) ListLowStock(ctx context.Context) ([]models.InventoryItem, *ServiceError) {
	items, err := s.inventory.FindLowStock(ctx)
	if err != nil {
		s.logger.Error("Failed to list low stock items", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list low stock items"}
	}
	return items, nil
}
