package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ordering-service/database"
	aws_pkg "ordering-service/pkg/aws"
	"ordering-service/services"
)

// Config holds all configuration for the ordering service.
type Config struct {
	Port string
	Env  string

	Postgres database.PostgresConfig

	MongoURL    string
	MongoDBName string

	RedisURL string

	// SNS topics for order and inventory events
	OrderEventsTopicARN     string
	InventoryAlertsTopicARN string

	// SQS checkout intake. URL wins; the name is resolved at startup when only
	// it is set.
	CheckoutQueueURL  string
	CheckoutQueueName string

	PromotionServiceURL string
	LoyaltyServiceURL   string

	TaxRate             float64
	ConsumptionDefaults services.ConsumptionDefaults

	AllowedOrigins []string
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		MongoURL:                getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDBName:             getEnv("MONGO_DB", "coffeeshop"),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		OrderEventsTopicARN:     os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		InventoryAlertsTopicARN: os.Getenv("INVENTORY_ALERTS_TOPIC_ARN"),
		CheckoutQueueURL:        os.Getenv("CHECKOUT_QUEUE_URL"),
		CheckoutQueueName:       os.Getenv("CHECKOUT_QUEUE_NAME"),
		PromotionServiceURL:     os.Getenv("PROMOTION_SERVICE_URL"),
		LoyaltyServiceURL:       os.Getenv("LOYALTY_SERVICE_URL"),
		TaxRate:                 getEnvFloat("TAX_RATE", 0.0875),
		ConsumptionDefaults: services.ConsumptionDefaults{
			EspressoShotGrams: getEnvFloat("ESPRESSO_SHOT_GRAMS", 18),
			MilkServingMl:     getEnvFloat("MILK_SERVING_ML", 150),
			SyrupPumpMl:       getEnvFloat("SYRUP_PUMP_ML", 15),
			ColdFoamMl:        getEnvFloat("COLD_FOAM_ML", 100),
			ToppingGrams:      getEnvFloat("TOPPING_GRAMS", 10),
		},
		AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
	}

	// Override DB credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)
			if creds, err := sm.GetJSONSecret(context.Background(), "ordering/DB_CREDENTIALS"); err == nil {
				if v := creds["POSTGRES_USER"]; v != "" {
					cfg.Postgres.User = v
				}
				if v := creds["POSTGRES_PASSWORD"]; v != "" {
					cfg.Postgres.Password = v
				}
				if v := creds["POSTGRES_DB"]; v != "" {
					cfg.Postgres.DBName = v
				}
				if v := creds["POSTGRES_HOST"]; v != "" {
					cfg.Postgres.Host = v
				}
				if v := creds["POSTGRES_PORT"]; v != "" {
					cfg.Postgres.Port = v
				}
			}
		}
	}

	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.DBName == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
