package domain

import "time"

// Event is the base interface for order lifecycle events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// OrderPlaced is raised once the placement saga has fully committed.
type OrderPlaced struct {
	BaseEvent
	OrderID     string    `json:"orderId"`
	Buyer       BuyerInfo `json:"buyer"`
	TotalAmount int64     `json:"totalAmount"`
	Lines       []Line    `json:"lines"`
}

// EventName returns the event type identifier.
func (e OrderPlaced) EventName() string {
	return "orders.order.placed"
}

// OrderCompleted is raised when an admin marks a pending order completed.
type OrderCompleted struct {
	BaseEvent
	OrderID string `json:"orderId"`
}

// EventName returns the event type identifier.
func (e OrderCompleted) EventName() string {
	return "orders.order.completed"
}

// OrderCancelled is raised when a pending order is cancelled and its stock returned.
type OrderCancelled struct {
	BaseEvent
	OrderID string `json:"orderId"`
}

// EventName returns the event type identifier.
func (e OrderCancelled) EventName() string {
	return "orders.order.cancelled"
}
