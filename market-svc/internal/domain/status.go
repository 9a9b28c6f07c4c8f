package domain

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusDelivering OrderStatus = "delivering"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var nextStatus = map[OrderStatus]OrderStatus{
	StatusPending:    StatusAccepted,
	StatusAccepted:   StatusPreparing,
	StatusPreparing:  StatusReady,
	StatusReady:      StatusDelivering,
	StatusDelivering: StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	if s == StatusDelivered || s == StatusCancelled {
		return true
	}
	_, ok := nextStatus[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo allows only the single next lifecycle step, or
// cancellation while the order is still pending.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == StatusPending && next == StatusCancelled {
		return true
	}
	want, ok := nextStatus[s]
	return ok && want == next
}
