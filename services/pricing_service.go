package services

import (
	"context"
	"errors"
	"fmt"

	"ordering-service/models"
	"ordering-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConsumptionDefaults are per-serving amounts applied when a customization
// does not carry an explicit quantity.
type ConsumptionDefaults struct {
	EspressoShotGrams float64
	MilkServingMl     float64
	SyrupPumpMl       float64
	ColdFoamMl        float64
	ToppingGrams      float64
}

func (d ConsumptionDefaults) forKind(k models.CustomizationKind) float64 {
	switch k {
	case models.CustomizationExtraShots:
		return d.EspressoShotGrams
	case models.CustomizationMilk:
		return d.MilkServingMl
	case models.CustomizationSyrup:
		return d.SyrupPumpMl
	case models.CustomizationColdFoam:
		return d.ColdFoamMl
	case models.CustomizationTopping:
		return d.ToppingGrams
	}
	return 0
}

// ResolvedLine is a priced order line together with the stock movements it
// requires. The deduction list is complete before any transaction starts.
type ResolvedLine struct {
	Item       models.OrderItem
	Deductions []models.InventoryDeduction
}

// PricingService turns a requested line into a priced one. It reads the
// catalog and inventory but never mutates either.
type PricingService interface {
	ResolveLine(ctx context.Context, catalogItemID uuid.UUID, quantity int, customizations []models.Customization) (*ResolvedLine, error)
}

type pricingServiceImpl struct {
	catalog   CatalogProvider
	inventory repository.InventoryRepository
	defaults  ConsumptionDefaults
	logger    *zap.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(catalog CatalogProvider, inventory repository.InventoryRepository, defaults ConsumptionDefaults, logger *zap.Logger) PricingService {
	return &pricingServiceImpl{
		catalog:   catalog,
		inventory: inventory,
		defaults:  defaults,
		logger:    logger,
	}
}

// ResolveLine prices one line and plans its deductions. Unit price is the
// catalog base price plus every customization delta (delta times count for
// counted customizations); deductions scale by count and line quantity.
//
// A customization pointing at a missing or unavailable inventory item keeps
// its price but skips its deduction: the shop charges for what it hands over
// even when the stock ledger lags behind the menu. A missing or unavailable
// base recipe ingredient instead blocks the whole item.
func (s *pricingServiceImpl) ResolveLine(ctx context.Context, catalogItemID uuid.UUID, quantity int, customizations []models.Customization) (*ResolvedLine, error) {
	item, err := s.catalog.GetItem(ctx, catalogItemID)
	if err != nil {
		if errors.Is(err, repository.ErrCatalogItemNotFound) {
			return nil, &ProductUnavailableError{CatalogItemID: catalogItemID, Cause: "not on the menu"}
		}
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if !item.IsAvailable {
		return nil, &ProductUnavailableError{CatalogItemID: catalogItemID, Name: item.Name, Cause: "currently unavailable"}
	}

	qty := float64(quantity)
	deductions := make([]models.InventoryDeduction, 0, len(item.Recipe)+len(customizations))

	for _, entry := range item.Recipe {
		ing, err := s.inventory.Get(ctx, entry.InventoryItemID)
		if err != nil {
			if errors.Is(err, repository.ErrItemNotFound) {
				return nil, &ProductUnavailableError{
					CatalogItemID: catalogItemID,
					Name:          item.Name,
					Cause:         fmt.Sprintf("recipe ingredient %s not stocked", entry.InventoryItemID),
				}
			}
			return nil, fmt.Errorf("inventory lookup failed: %w", err)
		}
		if !ing.IsAvailable {
			return nil, &ProductUnavailableError{
				CatalogItemID: catalogItemID,
				Name:          item.Name,
				Cause:         fmt.Sprintf("%s unavailable", ing.Name),
			}
		}
		deductions = append(deductions, models.InventoryDeduction{
			InventoryItemID: entry.InventoryItemID,
			ItemName:        ing.Name,
			Quantity:        entry.Quantity * qty,
			Reason:          models.ReasonBaseRecipe,
		})
	}

	unitPrice := item.BasePrice
	normalized := make(models.CustomizationList, 0, len(customizations))

	for _, c := range customizations {
		if !models.KnownCustomizationKind(c.Kind) {
			s.logger.Warn("Dropping unknown customization kind",
				zap.String("kind", string(c.Kind)),
				zap.String("catalog_item_id", catalogItemID.String()),
			)
			continue
		}
		if c.Option == "" && c.Kind != models.CustomizationExtraShots {
			continue
		}

		if c.Count <= 0 {
			c.Count = 1
		}
		unitPrice += c.PriceDelta * float64(c.Count)

		if c.Quantity <= 0 {
			c.Quantity = s.defaults.forKind(c.Kind)
		}

		if d, ok := s.planCustomizationDeduction(ctx, item, c, qty); ok {
			deductions = append(deductions, d)
		}
		normalized = append(normalized, c)
	}

	unitPrice = Round2(unitPrice)

	return &ResolvedLine{
		Item: models.OrderItem{
			CatalogItemID:  item.ID,
			Name:           item.Name,
			UnitPrice:      unitPrice,
			Quantity:       quantity,
			Customizations: normalized,
			LineTotal:      Round2(unitPrice * qty),
		},
		Deductions: deductions,
	}, nil
}

func (s *pricingServiceImpl) planCustomizationDeduction(ctx context.Context, item *models.CatalogItem, c models.Customization, qty float64) (models.InventoryDeduction, bool) {
	reason, consumes := models.DeductionReason(c.Kind)
	if !consumes || c.InventoryItemID == nil || c.Quantity <= 0 {
		return models.InventoryDeduction{}, false
	}

	ing, err := s.inventory.Get(ctx, *c.InventoryItemID)
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		s.logger.Warn("Customization references unknown inventory item, charging without deduction",
			zap.String("catalog_item", item.Name),
			zap.String("inventory_item_id", c.InventoryItemID.String()),
			zap.String("kind", string(c.Kind)),
		)
		return models.InventoryDeduction{}, false
	case err != nil:
		s.logger.Error("Inventory lookup failed for customization, charging without deduction",
			zap.String("catalog_item", item.Name),
			zap.Error(err),
		)
		return models.InventoryDeduction{}, false
	case !ing.IsAvailable:
		s.logger.Warn("Customization ingredient unavailable, charging without deduction",
			zap.String("catalog_item", item.Name),
			zap.String("ingredient", ing.Name),
		)
		return models.InventoryDeduction{}, false
	}

	return models.InventoryDeduction{
		InventoryItemID: *c.InventoryItemID,
		ItemName:        ing.Name,
		Quantity:        c.Quantity * float64(c.Count) * qty,
		Reason:          reason,
	}, true
}
