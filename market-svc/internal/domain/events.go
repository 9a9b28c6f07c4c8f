package domain

import "time"

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	CookIDs    []string    `json:"cook_ids"`
	Status     OrderStatus `json:"status"`
	Previous   OrderStatus `json:"previous_status,omitempty"`
	ChangedBy  string      `json:"changed_by,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// TimelineEntry is one recorded step in an order's lifecycle.
type TimelineEntry struct {
	Type      string      `json:"type"`
	Status    OrderStatus `json:"status"`
	Previous  OrderStatus `json:"previous_status,omitempty"`
	ChangedBy string      `json:"changed_by,omitempty"`
	At        time.Time   `json:"at"`
}

func (e OrderEvent) TimelineEntry() TimelineEntry {
	return TimelineEntry{
		Type:      e.Type,
		Status:    e.Status,
		Previous:  e.Previous,
		ChangedBy: e.ChangedBy,
		At:        e.Timestamp.UTC(),
	}
}
