package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CustomizationKind identifies the kind of drink customization requested.
type CustomizationKind string

const (
	CustomizationSize        CustomizationKind = "size"
	CustomizationExtraShots  CustomizationKind = "extra_shots"
	CustomizationSyrup       CustomizationKind = "syrup"
	CustomizationMilk        CustomizationKind = "milk"
	CustomizationTopping     CustomizationKind = "topping"
	CustomizationColdFoam    CustomizationKind = "cold_foam"
	CustomizationTemperature CustomizationKind = "temperature"
	CustomizationNote        CustomizationKind = "instructions"
)

// KnownCustomizationKind reports whether k is one of the supported kinds.
// Unknown kinds are dropped during normalization instead of failing the order.
func KnownCustomizationKind(k CustomizationKind) bool {
	switch k {
	case CustomizationSize, CustomizationExtraShots, CustomizationSyrup,
		CustomizationMilk, CustomizationTopping, CustomizationColdFoam,
		CustomizationTemperature, CustomizationNote:
		return true
	}
	return false
}

// RecipeEntry maps a menu item to one inventory item it consumes per unit sold.
type RecipeEntry struct {
	InventoryItemID uuid.UUID `bson:"inventory_item_id" json:"inventory_item_id"`
	Quantity        float64   `bson:"quantity" json:"quantity"`
}

// CatalogItem is a menu item as stored by the catalog service (MongoDB).
// The ordering service reads these documents but never writes them.
type CatalogItem struct {
	ID          uuid.UUID     `bson:"_id" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Category    string        `bson:"category" json:"category"`
	BasePrice   float64       `bson:"base_price" json:"base_price"`
	IsAvailable bool          `bson:"is_available" json:"is_available"`
	Recipe      []RecipeEntry `bson:"recipe" json:"recipe"`
}

// Customization is a requested modification to a single order line.
// Count defaults to 1 when omitted; Quantity is the consumption per serving
// and falls back to a configured per-kind default when zero.
type Customization struct {
	Kind            CustomizationKind `json:"kind"`
	Option          string            `json:"option"`
	Count           int               `json:"count,omitempty"`
	PriceDelta      float64           `json:"price_delta"`
	InventoryItemID *uuid.UUID        `json:"inventory_item_id,omitempty"`
	Quantity        float64           `json:"quantity,omitempty"`
}

// CustomizationList is stored on order items as a jsonb column.
type CustomizationList []Customization

func (l CustomizationList) Value() (driver.Value, error) {
	if l == nil {
		l = CustomizationList{}
	}
	return json.Marshal(l)
}

func (l *CustomizationList) Scan(value interface{}) error {
	if value == nil {
		*l = CustomizationList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported customization column type %T", value)
	}
}

// Reasons recorded against inventory movements.
const (
	ReasonBaseRecipe = "base_recipe"
	ReasonExtraShots = "extra_shots"
	ReasonSyrup      = "syrup_customization"
	ReasonMilk       = "milk_customization"
	ReasonTopping    = "topping_customization"
	ReasonColdFoam   = "cold_foam"
)

// DeductionReason returns the movement reason recorded for a customization kind.
// The second return is false for kinds that never consume stock.
func DeductionReason(k CustomizationKind) (string, bool) {
	switch k {
	case CustomizationExtraShots:
		return ReasonExtraShots, true
	case CustomizationSyrup:
		return ReasonSyrup, true
	case CustomizationMilk:
		return ReasonMilk, true
	case CustomizationTopping:
		return ReasonTopping, true
	case CustomizationColdFoam:
		return ReasonColdFoam, true
	}
	return "", false
}

// InventoryDeduction is one planned stock movement computed while pricing a
// line. The list for an order is fixed before the transaction starts.
type InventoryDeduction struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	ItemName        string    `json:"item_name"`
	Quantity        float64   `json:"quantity"`
	Reason          string    `json:"reason"`
}
