package controllers

import (
	"net/http"

	"ordering-service/models"
	"ordering-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryController struct {
	inventoryService services.InventoryService
}

func NewInventoryController(inventoryService services.InventoryService) *InventoryController {
	return &InventoryController{
		inventoryService: inventoryService,
	}
}

// UpsertItem seeds a new ingredient or restocks an existing one.
func (ic *InventoryController) UpsertItem(ctx *gin.Context) {
	var req models.UpsertInventoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, serviceErr := ic.inventoryService.UpsertItem(ctx.Request.Context(), &req)
	if serviceErr != nil {
		ctx.JSON(serviceErr.StatusCode, gin.H{"error": serviceErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"item": item})
}

// GetItem returns a single inventory item.
func (ic *InventoryController) GetItem(ctx *gin.Context) {
	itemID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID format"})
		return
	}

	item, serviceErr := ic.inventoryService.GetItem(ctx.Request.Context(), itemID)
	if serviceErr != nil {
		ctx.JSON(serviceErr.StatusCode, gin.H{"error": serviceErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"item": item})
}

// ListItems returns paginated inventory items.
func (ic *InventoryController) ListItems(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	items, total, serviceErr := ic.inventoryService.ListItems(ctx.Request.Context(), page, limit)
	if serviceErr != nil {
		ctx.JSON(serviceErr.StatusCode, gin.H{"error": serviceErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// ListLowStock returns every ingredient at or below its alert threshold.
func (ic *InventoryController) ListLowStock(ctx *gin.Context) {
	items, serviceErr := ic.inventoryService.ListLowStock(ctx.Request.Context())
	if serviceErr != nil {
		ctx.JSON(serviceErr.StatusCode, gin.H{"error": serviceErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}
