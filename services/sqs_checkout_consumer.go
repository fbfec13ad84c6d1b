package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ordering-service/models"

	aws_pkg "ordering-service/pkg/aws"

	"go.uber.org/zap"
)

const checkoutIdemTTL = 24 * time.Hour

// SQSCheckoutConsumer turns checkout events from the cart side into orders.
// Creation runs through the same pricing and deduction pipeline as the HTTP
// path.
type SQSCheckoutConsumer struct {
	consumer *aws_pkg.SQSConsumer
	orders   OrderService
	idem     IdempotencyStore
	metrics  *aws_pkg.MetricsClient
	logger   *zap.Logger
}

// NewSQSCheckoutConsumer creates a new SQSCheckoutConsumer. idem and metrics
// may be nil.
func NewSQSCheckoutConsumer(
	consumer *aws_pkg.SQSConsumer,
	orders OrderService,
	idem IdempotencyStore,
	metrics *aws_pkg.MetricsClient,
	logger *zap.Logger,
) *SQSCheckoutConsumer {
	return &SQSCheckoutConsumer{
		consumer: consumer,
		orders:   orders,
		idem:     idem,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start polls the checkout queue until the context is cancelled.
func (c *SQSCheckoutConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting checkout queue consumer")

	err := c.consumer.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Checkout queue polling stopped", zap.Error(err))
	}
}

// HandleMessage processes one raw queue message. A nil return deletes the
// message; malformed payloads and business rejections are dropped since
// redelivery cannot fix them, only infrastructure failures are retried.
func (c *SQSCheckoutConsumer) HandleMessage(ctx context.Context, body string) error {
	// Messages may arrive wrapped in an SNS envelope.
	var snsEnvelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &snsEnvelope); err == nil && snsEnvelope.Message != "" {
		body = snsEnvelope.Message
	}

	var evt models.CheckoutEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Warn("Dropping checkout message with invalid JSON", zap.Error(err))
		return nil
	}

	if evt.Event != "" && evt.Event != "checkout_completed" {
		c.logger.Debug("Ignoring event of different type", zap.String("event", evt.Event))
		return nil
	}

	if evt.IdempotencyKey != "" && c.idem != nil {
		seen, err := c.idem.Seen(ctx, evt.IdempotencyKey)
		if err != nil {
			c.logger.Warn("Idempotency lookup failed, proceeding",
				zap.String("idempotency_key", evt.IdempotencyKey),
				zap.Error(err),
			)
		} else if seen {
			c.logger.Info("Skipping already-processed checkout event",
				zap.String("idempotency_key", evt.IdempotencyKey),
			)
			return nil
		}
	}

	req := &models.CreateOrderRequest{
		CustomerName:  evt.CustomerName,
		CustomerEmail: evt.CustomerEmail,
		CustomerPhone: evt.CustomerPhone,
		Tip:           evt.Tip,
		Discount:      evt.Discount,
		PromoCode:     evt.PromoCode,
		RewardID:      evt.RewardID,
		UserID:        evt.UserID,
		Items:         make([]models.CreateOrderItem, 0, len(evt.Items)),
	}
	for _, it := range evt.Items {
		req.Items = append(req.Items, models.CreateOrderItem{
			CatalogItemID:  it.CatalogItemID,
			Quantity:       it.Quantity,
			Customizations: it.Customizations,
		})
	}

	order, svcErr := c.orders.CreateOrder(ctx, req)
	if svcErr != nil {
		if svcErr.StatusCode >= 500 {
			c.logger.Error("Checkout order creation failed, message will be retried",
				zap.String("user_id", evt.UserID),
				zap.String("error", svcErr.Message),
			)
			return svcErr
		}
		c.logger.Warn("Dropping rejected checkout event",
			zap.String("user_id", evt.UserID),
			zap.Int("status", svcErr.StatusCode),
			zap.String("error", svcErr.Message),
		)
		return nil
	}

	if evt.IdempotencyKey != "" && c.idem != nil {
		if err := c.idem.Mark(ctx, evt.IdempotencyKey, order.ID.String(), checkoutIdemTTL); err != nil {
			c.logger.Warn("Failed to mark checkout event processed",
				zap.String("idempotency_key", evt.IdempotencyKey),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("Checkout event processed",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", evt.UserID),
		zap.Int("items", len(order.Items)),
	)

	if c.metrics != nil && c.metrics.IsEnabled() {
		go func() {
			metricCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.metrics.RecordCount(metricCtx, aws_pkg.MetricCheckoutEvents, nil)
		}()
	}

	return nil
}
