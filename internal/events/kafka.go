// Package events publishes order state changes to Kafka for downstream
// consumers (notifications, analytics).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

const Topic = "order.state.changed"

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishStateChange(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":       orderID,
		"state":          to,
		"previous_state": from,
		"timestamp":      time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
