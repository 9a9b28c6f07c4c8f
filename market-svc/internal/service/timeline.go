package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"homecook-market/market-svc/internal/domain"

	log "github.com/sirupsen/logrus"
)

// RecordEvent appends an order event to the order's timeline. Entries are
// set members, so a redelivered event is stored once.
func (s *OrderService) RecordEvent(ctx context.Context, event domain.OrderEvent) error {
	if event.OrderID == "" {
		return validationError("event has no order id")
	}
	payload, err := json.Marshal(event.TimelineEntry())
	if err != nil {
		return err
	}
	if _, err := s.store.AddToIndex(ctx, timelineKey(event.OrderID), string(payload)); err != nil {
		return fmt.Errorf("record timeline %s: %w", event.OrderID, err)
	}
	return nil
}

// OrderTimeline returns recorded lifecycle steps, oldest first. Orders placed
// while no event consumer was running have an empty timeline.
func (s *OrderService) OrderTimeline(ctx context.Context, caller domain.Identity, id string) ([]domain.TimelineEntry, error) {
	if _, err := s.GetOrder(ctx, caller, id); err != nil {
		return nil, err
	}

	members, err := s.store.IndexMembers(ctx, timelineKey(id))
	if err != nil {
		return nil, fmt.Errorf("timeline %s: %w", id, err)
	}

	entries := make([]domain.TimelineEntry, 0, len(members))
	for _, member := range members {
		var entry domain.TimelineEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			log.WithField("order", id).Warnf("skipping undecodable timeline entry: %v", err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})
	return entries, nil
}
