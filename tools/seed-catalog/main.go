package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ordering-service/database"
	"ordering-service/models"
	aws_pkg "ordering-service/pkg/aws"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Fixed IDs keep menu recipes pointing at the same inventory rows across
// reseeds.
var (
	beansID     = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a01")
	wholeMilkID = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a02")
	oatMilkID   = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a03")
	vanillaID   = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a04")
	caramelID   = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a05")
	chocolateID = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a06")
	creamID     = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a07")
	cocoaID     = uuid.MustParse("c1a5e8a2-93c4-4d2a-9e7a-6c2f4b9d1a08")

	latteID        = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b01")
	espressoID     = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b02")
	americanoID    = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b03")
	cappuccinoID   = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b04")
	mochaID        = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b05")
	hotChocolateID = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b06")
	coldBrewID     = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b07")
	oatLatteID     = uuid.MustParse("d4f7b3c1-5a82-4e96-b1d3-8e5a2c7f9b08")
)

func seedInventory() []models.InventoryItem {
	return []models.InventoryItem{
		{ID: beansID, Name: "Espresso Beans", Unit: "g", QuantityOnHand: 5000, LowStockThreshold: 500, IsAvailable: true},
		{ID: wholeMilkID, Name: "Whole Milk", Unit: "ml", QuantityOnHand: 20000, LowStockThreshold: 2000, IsAvailable: true},
		{ID: oatMilkID, Name: "Oat Milk", Unit: "ml", QuantityOnHand: 8000, LowStockThreshold: 1000, IsAvailable: true},
		{ID: vanillaID, Name: "Vanilla Syrup", Unit: "ml", QuantityOnHand: 1500, LowStockThreshold: 200, IsAvailable: true},
		{ID: caramelID, Name: "Caramel Syrup", Unit: "ml", QuantityOnHand: 1500, LowStockThreshold: 200, IsAvailable: true},
		{ID: chocolateID, Name: "Chocolate Sauce", Unit: "ml", QuantityOnHand: 1200, LowStockThreshold: 150, IsAvailable: true},
		{ID: creamID, Name: "Heavy Cream", Unit: "ml", QuantityOnHand: 4000, LowStockThreshold: 500, IsAvailable: true},
		{ID: cocoaID, Name: "Cocoa Powder", Unit: "g", QuantityOnHand: 800, LowStockThreshold: 100, IsAvailable: true},
	}
}

func seedMenu() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: espressoID, Name: "Espresso", Category: "espresso_drinks", BasePrice: 3.00, IsAvailable: true,
			Recipe: []models.RecipeEntry{{InventoryItemID: beansID, Quantity: 18}}},
		{ID: americanoID, Name: "Americano", Category: "espresso_drinks", BasePrice: 3.50, IsAvailable: true,
			Recipe: []models.RecipeEntry{{InventoryItemID: beansID, Quantity: 18}}},
		{ID: latteID, Name: "Latte", Category: "espresso_drinks", BasePrice: 4.50, IsAvailable: true,
			Recipe: []models.RecipeEntry{
				{InventoryItemID: beansID, Quantity: 18},
				{InventoryItemID: wholeMilkID, Quantity: 200},
			}},
		{ID: cappuccinoID, Name: "Cappuccino", Category: "espresso_drinks", BasePrice: 4.25, IsAvailable: true,
			Recipe: []models.RecipeEntry{
				{InventoryItemID: beansID, Quantity: 18},
				{InventoryItemID: wholeMilkID, Quantity: 120},
			}},
		{ID: oatLatteID, Name: "Oat Milk Latte", Category: "espresso_drinks", BasePrice: 5.00, IsAvailable: true,
			Recipe: []models.RecipeEntry{
				{InventoryItemID: beansID, Quantity: 18},
				{InventoryItemID: oatMilkID, Quantity: 200},
			}},
		{ID: mochaID, Name: "Mocha", Category: "espresso_drinks", BasePrice: 5.25, IsAvailable: true,
			Recipe: []models.RecipeEntry{
				{InventoryItemID: beansID, Quantity: 18},
				{InventoryItemID: wholeMilkID, Quantity: 180},
				{InventoryItemID: chocolateID, Quantity: 30},
			}},
		{ID: hotChocolateID, Name: "Hot Chocolate", Category: "other_drinks", BasePrice: 4.00, IsAvailable: true,
			Recipe: []models.RecipeEntry{
				{InventoryItemID: wholeMilkID, Quantity: 220},
				{InventoryItemID: chocolateID, Quantity: 40},
				{InventoryItemID: cocoaID, Quantity: 5},
			}},
		{ID: coldBrewID, Name: "Cold Brew", Category: "cold_drinks", BasePrice: 4.25, IsAvailable: true,
			Recipe: []models.RecipeEntry{{InventoryItemID: beansID, Quantity: 30}}},
	}
}

func main() {
	var mongoURI, dbName, queueURL string
	var sendTestCheckout bool
	flag.StringVar(&mongoURI, "mongo", envOr("MONGO_URL", "mongodb://localhost:27017"), "MongoDB URI")
	flag.StringVar(&dbName, "db", envOr("MONGO_DB", "coffeeshop"), "MongoDB database name")
	flag.StringVar(&queueURL, "queue", os.Getenv("CHECKOUT_QUEUE_URL"), "checkout queue URL for the optional test event")
	flag.BoolVar(&sendTestCheckout, "send-test-checkout", false, "send one checkout event to the queue after seeding")
	flag.Parse()

	ctx := context.Background()

	// --- Menu into Mongo ---
	clientOpts := options.Client().ApplyURI(mongoURI)
	mclient, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mclient.Disconnect(ctx)

	coll := mclient.Database(dbName).Collection("menu_items")
	for _, item := range seedMenu() {
		_, err := coll.ReplaceOne(ctx, bson.M{"_id": item.ID}, item, options.Replace().SetUpsert(true))
		if err != nil {
			log.Fatalf("failed to seed menu item %s: %v", item.Name, err)
		}
	}
	log.Printf("seeded %d menu items", len(seedMenu()))

	// --- Inventory into Postgres ---
	pgCfg := database.PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   os.Getenv("POSTGRES_DB"),
		Host:     envOr("POSTGRES_HOST", "localhost"),
		Port:     envOr("POSTGRES_PORT", "5432"),
		SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		TimeZone: envOr("POSTGRES_TIMEZONE", "UTC"),
	}
	if pgCfg.User == "" || pgCfg.Password == "" || pgCfg.DBName == "" {
		log.Fatal("POSTGRES_USER, POSTGRES_PASSWORD and POSTGRES_DB must be set")
	}

	db, err := gorm.Open(postgres.Open(pgCfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}, &models.Order{}, &models.OrderItem{}, &models.SnapshotEntry{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Existing rows keep their live stock counts; only missing SKUs are created.
	var created int
	for _, item := range seedInventory() {
		var existing models.InventoryItem
		err := db.Where("id = ?", item.ID).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("lookup inventory item %s: %v", item.Name, err)
		}
		if err := db.Create(&item).Error; err != nil {
			log.Fatalf("create inventory item %s: %v", item.Name, err)
		}
		created++
	}
	log.Printf("seeded inventory: %d created, %d already present", created, len(seedInventory())-created)

	// --- Optional test checkout event ---
	if sendTestCheckout {
		if queueURL == "" {
			log.Fatal("-queue or CHECKOUT_QUEUE_URL must be set for -send-test-checkout")
		}
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}

		evt := models.CheckoutEvent{
			Event:          "checkout_completed",
			IdempotencyKey: "seed-" + uuid.New().String(),
			CustomerName:   "Seed Customer",
			CustomerEmail:  "seed@example.com",
			Items: []models.CheckoutItem{
				{
					CatalogItemID: latteID.String(),
					Quantity:      1,
					Customizations: []models.Customization{
						{Kind: models.CustomizationExtraShots, Count: 1, PriceDelta: 0.75, InventoryItemID: &beansID},
						{Kind: models.CustomizationSyrup, Option: "vanilla", PriceDelta: 0.50, InventoryItemID: &vanillaID},
					},
				},
			},
			Timestamp: time.Now(),
		}
		body, err := json.Marshal(evt)
		if err != nil {
			log.Fatalf("marshal checkout event: %v", err)
		}

		consumer := aws_pkg.NewSQSConsumer(awsCfg, queueURL)
		if err := consumer.SendMessage(ctx, string(body)); err != nil {
			log.Fatalf("send checkout event: %v", err)
		}
		log.Printf("sent test checkout event %s", evt.IdempotencyKey)
	}

	fmt.Println("Seeding complete.")
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
