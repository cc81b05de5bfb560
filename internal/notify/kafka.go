package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	EventTypeClaimStateChanged   = "ClaimStateChanged"
	EventTypeRequestStateChanged = "RequestStateChanged"
)

// Event is the JSON envelope published for every state transition.
type Event struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type ClaimPayload struct {
	ID        string     `json:"id"`
	AssetID   string     `json:"asset_id"`
	Kind      string     `json:"kind"`
	Quantity  int        `json:"quantity"`
	State     string     `json:"state"`
	Reference *string    `json:"reference,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

type RequestPayload struct {
	ID           string `json:"id"`
	AssetName    string `json:"asset_name"`
	Quantity     int    `json:"quantity"`
	State        string `json:"state"`
	AutoDeclined bool   `json:"auto_declined"`
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaNotifier publishes state-change envelopes to a single topic, keyed
// by the subject id so per-record ordering is preserved.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(cfg *KafkaConfig) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (n *KafkaNotifier) ClaimStateChanged(ctx context.Context, claim *model.Claim) error {
	return n.publish(ctx, claim.ID, Event{
		EventID:   uuid.New().String(),
		EventType: EventTypeClaimStateChanged,
		Payload: ClaimPayload{
			ID:        claim.ID,
			AssetID:   claim.AssetID,
			Kind:      string(claim.Kind),
			Quantity:  claim.Quantity,
			State:     string(claim.State),
			Reference: claim.Reference,
			ClosedAt:  claim.ClosedAt,
		},
		Timestamp: time.Now(),
	})
}

func (n *KafkaNotifier) RequestStateChanged(ctx context.Context, request *model.AcquisitionRequest) error {
	return n.publish(ctx, request.ID, Event{
		EventID:   uuid.New().String(),
		EventType: EventTypeRequestStateChanged,
		Payload: RequestPayload{
			ID:           request.ID,
			AssetName:    request.AssetName,
			Quantity:     request.Quantity,
			State:        string(request.State),
			AutoDeclined: request.AutoDeclined,
		},
		Timestamp: time.Now(),
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, key string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
