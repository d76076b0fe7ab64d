package events

import (
	"time"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

const (
	GroupCreatedEvent    = "group.created"
	AnchorSkippedEvent   = "anchor.skipped"
	OperationBookedEvent = "operation.booked"
	OrderPlannedEvent    = "order.planned"
	OrderFailedEvent     = "order.failed"
	RunCompletedEvent    = "run.completed"
)

// AllEventTypes lists every planning event type
var AllEventTypes = []string{
	GroupCreatedEvent,
	AnchorSkippedEvent,
	OperationBookedEvent,
	OrderPlannedEvent,
	OrderFailedEvent,
	RunCompletedEvent,
}

type GroupCreated struct {
	GroupID       string             `json:"group_id"`
	AnchorOrderID string             `json:"anchor_order_id"`
	AnchorProduct entities.ProductID `json:"anchor_product"`
	WindowStart   time.Time          `json:"window_start"`
	WindowEnd     time.Time          `json:"window_end"`
	Members       []string           `json:"members"`
}

type AnchorSkipped struct {
	OrderID    string `json:"order_id"`
	Candidates int    `json:"candidates"`
	Reason     string `json:"reason"`
}

type OperationBooked struct {
	OrderID   string    `json:"order_id"`
	Step      int       `json:"step"`
	Operation string    `json:"operation"`
	PostID    string    `json:"post_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

type OrderPlanned struct {
	OrderID string               `json:"order_id"`
	GroupID string               `json:"group_id"`
	Status  entities.OrderStatus `json:"status"`
	Start   time.Time            `json:"start"`
	End     time.Time            `json:"end"`
}

type OrderFailed struct {
	OrderID string               `json:"order_id"`
	GroupID string               `json:"group_id"`
	Status  entities.OrderStatus `json:"status"`
	Reason  string               `json:"reason"`
}

type RunCompleted struct {
	RunID    string        `json:"run_id"`
	Groups   int           `json:"groups"`
	Orders   int           `json:"orders"`
	Duration time.Duration `json:"duration"`
}

func groupStream(id string) string { return "group/" + id }
func orderStream(id string) string { return "order/" + id }

func NewGroupCreatedEvent(group *entities.Group, anchorOrderID string) Event {
	return NewEvent(GroupCreatedEvent, groupStream(group.ID), GroupCreated{
		GroupID:       group.ID,
		AnchorOrderID: anchorOrderID,
		AnchorProduct: group.AnchorProduct,
		WindowStart:   group.WindowStart,
		WindowEnd:     group.WindowEnd,
		Members:       append([]string(nil), group.Members...),
	})
}

func NewAnchorSkippedEvent(orderID string, candidates int, reason string) Event {
	return NewEvent(AnchorSkippedEvent, orderStream(orderID), AnchorSkipped{
		OrderID:    orderID,
		Candidates: candidates,
		Reason:     reason,
	})
}

func NewOperationBookedEvent(orderID string, step int, operation, postID string, start, end time.Time) Event {
	return NewEvent(OperationBookedEvent, orderStream(orderID), OperationBooked{
		OrderID:   orderID,
		Step:      step,
		Operation: operation,
		PostID:    postID,
		Start:     start,
		End:       end,
	})
}

func NewOrderPlannedEvent(order *entities.ManufacturingOrder) Event {
	return NewEvent(OrderPlannedEvent, orderStream(order.ID), OrderPlanned{
		OrderID: order.ID,
		GroupID: order.GroupID,
		Status:  order.Status,
		Start:   order.ScheduledStart,
		End:     order.ScheduledEnd,
	})
}

func NewOrderFailedEvent(order *entities.ManufacturingOrder) Event {
	return NewEvent(OrderFailedEvent, orderStream(order.ID), OrderFailed{
		OrderID: order.ID,
		GroupID: order.GroupID,
		Status:  order.Status,
		Reason:  order.FailureReason,
	})
}

func NewRunCompletedEvent(runID string, groups, orders int, duration time.Duration) Event {
	return NewEvent(RunCompletedEvent, "run/"+runID, RunCompleted{
		RunID:    runID,
		Groups:   groups,
		Orders:   orders,
		Duration: duration,
	})
}

// Publish appends the event to its own stream. A nil store is a no-op.
func Publish(store EventStore, event Event) error {
	if store == nil {
		return nil
	}
	return store.AppendEvent(event.StreamID(), event)
}
