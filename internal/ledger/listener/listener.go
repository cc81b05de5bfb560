package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/assetdesk/ledger-service/internal/ledger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer is the slice of kafka.Reader the listener needs.
type Consumer interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// ResolutionListener consumes resolution events from other services (issue
// trackers, event pages) and releases the matching open claims. Releases are
// idempotent, so redelivered messages are safe.
type ResolutionListener struct {
	consumer Consumer
	uc       ledger.UseCase
	logger   *zap.Logger
}

func NewResolutionListener(consumer Consumer, uc ledger.UseCase, log *zap.Logger) *ResolutionListener {
	return &ResolutionListener{
		consumer: consumer,
		uc:       uc,
		logger:   log,
	}
}

const (
	EventTypeIssueResolved  = "IssueResolved"
	EventTypeEventClosed    = "EventClosed"
	EventTypeBorrowReturned = "BorrowReturned"
)

type ResolutionEvent struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Payload   ResolutionPayload `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
}

type ResolutionPayload struct {
	Reference string `json:"reference"` // issue id, event id, borrower id
}

func (l *ResolutionListener) Start(ctx context.Context) {
	l.logger.Info("Starting resolution event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping resolution event listener")
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

func (l *ResolutionListener) processMessage(ctx context.Context, value []byte) {
	var event ResolutionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	switch event.EventType {
	case EventTypeIssueResolved, EventTypeEventClosed, EventTypeBorrowReturned:
	default:
		return
	}

	if event.Payload.Reference == "" {
		l.logger.Warn("Resolution event without reference", zap.String("event_id", event.EventID))
		return
	}

	claims, err := l.uc.OpenClaimsByReference(ctx, event.Payload.Reference)
	if err != nil {
		l.logger.Error("Failed to look up claims for reference",
			zap.String("reference", event.Payload.Reference),
			zap.Error(err),
		)
		return
	}

	for i := range claims {
		_, err := l.uc.Release(ctx, claims[i].ID)
		if err != nil {
			// Already closed means a duplicate delivery; nothing to do.
			if errors.Is(err, ledger.ErrClaimAlreadyClosed) {
				continue
			}
			l.logger.Error("Failed to release claim for resolution event",
				zap.String("claim_id", claims[i].ID),
				zap.String("reference", event.Payload.Reference),
				zap.Error(err),
			)
			continue
		}
		l.logger.Info("Released claim for resolution event",
			zap.String("claim_id", claims[i].ID),
			zap.String("event_type", event.EventType),
			zap.String("reference", event.Payload.Reference),
		)
	}
}
