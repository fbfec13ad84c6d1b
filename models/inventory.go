package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is a stockable ingredient (espresso beans, oat milk, cups).
// QuantityOnHand only changes through ledger deductions and restores.
type InventoryItem struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(120);not null" json:"name"`
	Unit              string    `gorm:"type:varchar(16);not null" json:"unit"`
	QuantityOnHand    float64   `gorm:"type:decimal(12,3);not null;default:0" json:"quantity_on_hand"`
	LowStockThreshold float64   `gorm:"type:decimal(12,3);not null;default:0" json:"low_stock_threshold"`
	IsAvailable       bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLow reports whether on-hand stock has reached the alert threshold.
func (i *InventoryItem) IsLow() bool {
	return i.LowStockThreshold > 0 && i.QuantityOnHand <= i.LowStockThreshold
}

// UpsertInventoryRequest seeds or restocks a single item. The ID must match
// the inventory_item_id used by catalog recipes. Restocking an existing item
// adds the incoming quantity to the current on-hand count.
type UpsertInventoryRequest struct {
	ID                uuid.UUID `json:"id" binding:"required"`
	Name              string    `json:"name" binding:"required,min=2,max=120"`
	Unit              string    `json:"unit" binding:"required,min=1,max=16"`
	Quantity          float64   `json:"quantity" binding:"gte=0"`
	LowStockThreshold float64   `json:"low_stock_threshold" binding:"gte=0"`
	IsAvailable       *bool     `json:"is_available"`
}

// LowStockEvent is published when a deduction leaves an item at or below its
// threshold.
type LowStockEvent struct {
	EventType         string    `json:"event_type"`
	InventoryItemID   string    `json:"inventory_item_id"`
	Name              string    `json:"name"`
	Unit              string    `json:"unit"`
	QuantityOnHand    float64   `json:"quantity_on_hand"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	Timestamp         time.Time `json:"timestamp"`
}
