package repository

import (
	"context"
	"errors"

	"ordering-service/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrCatalogItemNotFound = errors.New("catalog item not found")

// CatalogRepository reads menu items from the catalog database. The catalog
// is owned by menu management; this service never writes to it.
type CatalogRepository struct {
	collection *mongo.Collection
}

// NewCatalogRepository creates a repository over the menu_items collection.
func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{
		collection: db.Collection("menu_items"),
	}
}

// FindByID retrieves a single menu item, excluding soft-deleted documents.
func (r *CatalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	filter := bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}
	var item models.CatalogItem
	if err := r.collection.FindOne(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCatalogItemNotFound
		}
		return nil, err
	}
	return &item, nil
}
