// Package events consumes order events from the broker and projects them
// into per-order timelines.
package events

import (
	"context"
	"encoding/json"
	"time"

	"homecook-market/market-svc/internal/domain"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Recorder interface {
	RecordEvent(ctx context.Context, event domain.OrderEvent) error
}

type Consumer struct {
	Reader   MessageReader
	Recorder Recorder
	// RetryDelay is the pause after a failed fetch or record.
	RetryDelay time.Duration
}

func NewConsumer(reader MessageReader, recorder Recorder) *Consumer {
	return &Consumer{Reader: reader, Recorder: recorder, RetryDelay: time.Second}
}

// Start blocks until ctx is cancelled. A message is committed only after it
// was recorded; a failed record is retried on the same message, since
// committing a later offset would acknowledge it too.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info("Starting order timeline consumer...")

	for {
		message, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("error reading message: %v", err)
			if !c.pause(ctx) {
				return nil
			}
			continue
		}

		for {
			err := c.Process(ctx, message.Value)
			if err == nil {
				break
			}
			log.WithFields(log.Fields{
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Errorf("error recording event: %v", err)
			if !c.pause(ctx) {
				return nil
			}
		}

		if err := c.Reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			log.Errorf("error committing message: %v", err)
		}
	}
}

// pause waits RetryDelay and reports false if ctx ended first.
func (c *Consumer) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.RetryDelay):
		return true
	}
}

// Process records one message. Undecodable payloads and unknown event types
// are dropped, not returned, so they do not block the partition.
func (c *Consumer) Process(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warnf("dropping undecodable event: %v", err)
		return nil
	}

	switch event.Type {
	case domain.EventOrderCreated, domain.EventOrderStatusChanged:
		return c.Recorder.RecordEvent(ctx, event)
	default:
		log.WithField("type", event.Type).Debug("ignoring event")
		return nil
	}
}
