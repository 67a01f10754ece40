package listener

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/stockops/inventory-service/internal/ledger"
	"github.com/stockops/inventory-service/internal/ledger/dto"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/pkg/broker"
	"github.com/stockops/inventory-service/pkg/logger"
)

// SaleListener applies point-of-sale decrements coming off the order topic.
// Sales live outside this core but mutate stock through the same atomic
// ledger contract as everything else.
type SaleListener struct {
	consumer *broker.KafkaConsumer
	uc       ledger.UseCase
	logger   logger.ZapLogger
}

func NewSaleListener(consumer *broker.KafkaConsumer, uc ledger.UseCase, logger logger.ZapLogger) *SaleListener {
	return &SaleListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *SaleListener) Start(ctx context.Context) {
	l.logger.Info("Starting sale decrement listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping sale decrement listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID      string             `json:"id"`
	StoreID string             `json:"store_id"`
	Items   []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

func (l *SaleListener) processMessage(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "OrderCreated" {
		return
	}

	l.logger.Info("Processing OrderCreated event", zap.String("order_id", event.Payload.ID))

	for _, item := range event.Payload.Items {
		input := &dto.AdjustInventoryInput{
			ProductID:     item.ProductID,
			LocationID:    event.Payload.StoreID,
			LocationType:  model.LocationStore,
			Type:          "remove",
			Quantity:      item.Quantity,
			Reason:        "Order Sale",
			ReferenceType: "sale",
			ReferenceID:   event.Payload.ID,
			ActorID:       "system",
		}

		_, err := l.uc.AdjustInventory(ctx, input)
		if err != nil {
			l.logger.Error("Failed to adjust inventory for order item",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
