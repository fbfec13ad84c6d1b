package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the aggregate root of a placed order. It is created exactly once,
// inside the same transaction that deducts stock; afterwards only status and
// timestamp fields change.
type Order struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber   string      `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	UserID        *uuid.UUID  `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CustomerName  string      `gorm:"type:varchar(120);not null" json:"customer_name"`
	CustomerEmail string      `gorm:"type:varchar(254)" json:"customer_email"`
	CustomerPhone string      `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	Status        OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus string      `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`

	Subtotal  float64 `gorm:"not null" json:"subtotal"`
	Tax       float64 `gorm:"not null" json:"tax"`
	Tip       float64 `gorm:"not null;default:0" json:"tip"`
	Discount  float64 `gorm:"not null;default:0" json:"discount"`
	Total     float64 `gorm:"not null" json:"total"`
	PromoCode string  `gorm:"type:varchar(64)" json:"promo_code,omitempty"`
	RewardID  string  `gorm:"type:varchar(64)" json:"reward_id,omitempty"`

	EstimatedReadyAt *time.Time `json:"estimated_ready_at,omitempty"`
	PrepStartedAt    *time.Time `json:"prep_started_at,omitempty"`
	ReadyAt          *time.Time `json:"ready_at,omitempty"`
	PickedUpAt       *time.Time `json:"picked_up_at,omitempty"`
	CanceledAt       *time.Time `json:"canceled_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Snapshot []SnapshotEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"inventory_snapshot"`
}

// TotalUnits is the number of drink units across all lines, used for the
// pickup estimate.
func (o *Order) TotalUnits() int {
	units := 0
	for _, it := range o.Items {
		units += it.Quantity
	}
	return units
}

// OrderItem is a priced line. Name and UnitPrice snapshot the catalog at
// order time so later menu edits never change a committed order.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"-"`
	CatalogItemID  uuid.UUID         `gorm:"type:uuid;not null" json:"catalog_item_id"`
	Name           string            `gorm:"type:varchar(120);not null" json:"name"`
	UnitPrice      float64           `gorm:"not null" json:"unit_price"`
	Quantity       int               `gorm:"not null" json:"quantity"`
	Customizations CustomizationList `gorm:"type:jsonb" json:"customizations"`
	LineTotal      float64           `gorm:"not null" json:"line_total"`
}

// SnapshotEntry records one applied stock movement of an order, with the
// on-hand count before and after. Entries are written once at commit and are
// the exact amounts restored on cancellation.
type SnapshotEntry struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;not null" json:"inventory_item_id"`
	ItemName        string    `gorm:"type:varchar(120);not null" json:"item_name"`
	Quantity        float64   `gorm:"type:decimal(12,3);not null" json:"quantity"`
	Reason          string    `gorm:"type:varchar(64);not null" json:"reason"`
	Before          float64   `gorm:"type:decimal(12,3);not null;column:quantity_before" json:"quantity_before"`
	After           float64   `gorm:"type:decimal(12,3);not null;column:quantity_after" json:"quantity_after"`
}

// CreateOrderRequest is the payload for placing an order.
type CreateOrderRequest struct {
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	Items         []CreateOrderItem `json:"items" binding:"required,dive"`
	Tip           float64           `json:"tip" binding:"gte=0"`
	Discount      float64           `json:"discount" binding:"gte=0"`
	PromoCode     string            `json:"promo_code"`
	RewardID      string            `json:"reward_id"`

	// Set from the gateway identity headers, not from the request body.
	UserID string `json:"-"`
}

// CreateOrderItem is one requested line.
type CreateOrderItem struct {
	CatalogItemID  string          `json:"catalog_item_id" binding:"required"`
	Quantity       int             `json:"quantity" binding:"required,min=1"`
	Customizations []Customization `json:"customizations" binding:"dive"`
}

// UpdateStatusRequest moves an order through its lifecycle.
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

// OrderCreatedEvent is published after an order commits.
type OrderCreatedEvent struct {
	EventType    string    `json:"event_type"`
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	UserID       string    `json:"user_id,omitempty"`
	CustomerName string    `json:"customer_name"`
	Total        float64   `json:"total"`
	ItemCount    int       `json:"item_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent is published after a lifecycle transition persists.
type OrderStatusChangedEvent struct {
	EventType        string      `json:"event_type"`
	OrderID          string      `json:"order_id"`
	OrderNumber      string      `json:"order_number"`
	From             OrderStatus `json:"from"`
	To               OrderStatus `json:"to"`
	EstimatedReadyAt *time.Time  `json:"estimated_ready_at,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}

// OrderCancelledEvent is published after a cancellation commits.
type OrderCancelledEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	RestoredItems int       `json:"restored_items"`
	Timestamp     time.Time `json:"timestamp"`
}

// CheckoutEvent arrives on the checkout queue from the cart/BFF side.
type CheckoutEvent struct {
	Event          string         `json:"event"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	CustomerName   string         `json:"customer_name"`
	CustomerEmail  string         `json:"customer_email"`
	CustomerPhone  string         `json:"customer_phone,omitempty"`
	Items          []CheckoutItem `json:"items"`
	Tip            float64        `json:"tip,omitempty"`
	Discount       float64        `json:"discount,omitempty"`
	PromoCode      string         `json:"promo_code,omitempty"`
	RewardID       string         `json:"reward_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// CheckoutItem is one line of a checkout event.
type CheckoutItem struct {
	CatalogItemID  string          `json:"catalog_item_id"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
}
