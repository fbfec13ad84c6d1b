package repository

import (
	"context"
	"errors"
	"fmt"

	"ordering-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries the item that could not cover a deduction.
// errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	ItemName  string
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available=%.3f requested=%.3f", e.ItemName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Movement reports one applied stock change. Item holds the row state after
// the change.
type Movement struct {
	Item   models.InventoryItem
	Before float64
	After  float64
}

// InventoryRepository is the stock ledger. Deduct and Restore run on the
// transaction handle passed by the caller so an order's movements commit or
// roll back as one unit.
type InventoryRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	AddStock(ctx context.Context, id uuid.UUID, quantity float64, updates map[string]interface{}) error
	FindAll(ctx context.Context, page, limit int) ([]models.InventoryItem, int64, error)
	FindLowStock(ctx context.Context) ([]models.InventoryItem, error)
	Deduct(tx *gorm.DB, id uuid.UUID, quantity float64) (*Movement, error)
	Restore(tx *gorm.DB, id uuid.UUID, quantity float64) (*Movement, error)
}

// GormInventoryRepository implements InventoryRepository on Postgres.
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository.
func NewGormInventoryRepository(db *gorm.DB) InventoryRepository {
	return &GormInventoryRepository{db: db}
}

// Get retrieves one inventory item by ID.
func (r *GormInventoryRepository) Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new inventory item.
func (r *GormInventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// AddStock atomically adds quantity to an existing item and applies the given
// column updates (threshold, availability).
func (r *GormInventoryRepository) AddStock(ctx context.Context, id uuid.UUID, quantity float64, updates map[string]interface{}) error {
	cols := map[string]interface{}{
		"quantity_on_hand": gorm.Expr("quantity_on_hand + ?", quantity),
	}
	for k, v := range updates {
		cols[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// FindAll retrieves paginated inventory items ordered by name.
func (r *GormInventoryRepository) FindAll(ctx context.Context, page, limit int) ([]models.InventoryItem, int64, error) {
	var items []models.InventoryItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.InventoryItem{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// FindLowStock retrieves items at or below their alert threshold.
func (r *GormInventoryRepository) FindLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("low_stock_threshold > 0 AND quantity_on_hand <= low_stock_threshold").
		Order("quantity_on_hand ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Deduct subtracts quantity from an item's on-hand count. The WHERE guard
// makes the write conditional at the row level, so two transactions racing
// for the last unit cannot both succeed regardless of isolation level.
func (r *GormInventoryRepository) Deduct(tx *gorm.DB, id uuid.UUID, quantity float64) (*Movement, error) {
	result := tx.Model(&models.InventoryItem{}).
		Where("id = ? AND quantity_on_hand >= ?", id, quantity).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand - ?", quantity))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing row from an insufficient one.
		var item models.InventoryItem
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemNotFound
			}
			return nil, err
		}
		return nil, &InsufficientStockError{
			ItemID:    id,
			ItemName:  item.Name,
			Requested: quantity,
			Available: item.QuantityOnHand,
		}
	}

	var item models.InventoryItem
	if err := tx.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &Movement{
		Item:   item,
		Before: item.QuantityOnHand + quantity,
		After:  item.QuantityOnHand,
	}, nil
}

// Restore adds quantity back to an item's on-hand count. There is no upper
// bound; cancellations must always be able to return stock.
func (r *GormInventoryRepository) Restore(tx *gorm.DB, id uuid.UUID, quantity float64) (*Movement, error) {
	result := tx.Model(&models.InventoryItem{}).
		Where("id = ?", id).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", quantity))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	var item models.InventoryItem
	if err := tx.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &Movement{
		Item:   item,
		Before: item.QuantityOnHand - quantity,
		After:  item.QuantityOnHand,
	}, nil
}
