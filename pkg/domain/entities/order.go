package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the planning state of a manufacturing order
type OrderStatus int

const (
	Unassigned OrderStatus = iota
	Assigned
	PlannedOnTime
	PlannedLate
	FailedPlanning
	FailedNoOperations
)

// String method for OrderStatus enum
func (s OrderStatus) String() string {
	switch s {
	case Unassigned:
		return "UNASSIGNED"
	case Assigned:
		return "ASSIGNED"
	case PlannedOnTime:
		return "PLANNED"
	case PlannedLate:
		return "PLANNED_LATE"
	case FailedPlanning:
		return "FAILED_PLANNING"
	case FailedNoOperations:
		return "FAILED_PLANNING_NO_OPS"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the status using its stable code
func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsPlanned reports whether the order received a committed schedule
func (s OrderStatus) IsPlanned() bool {
	return s == PlannedOnTime || s == PlannedLate
}

// IsFailed reports whether scheduling was attempted and did not succeed
func (s OrderStatus) IsFailed() bool {
	return s == FailedPlanning || s == FailedNoOperations
}

// ManufacturingOrder represents a unit of planned production for one product
type ManufacturingOrder struct {
	ID          string          `json:"id"`
	Designation string          `json:"designation"`
	ProductID   ProductID       `json:"product_id"`
	ProductType ProductType     `json:"product_type"`
	BOMLevel    int             `json:"bom_level"`
	NeedDate    time.Time       `json:"need_date"`
	Quantity    decimal.Decimal `json:"quantity"`
	// SourceQty keeps the quantity text exactly as read so output can
	// round-trip it unchanged.
	SourceQty string `json:"source_qty"`
	Unit      string `json:"unit"`

	FG  string `json:"fg"`
	Cat string `json:"cat"`
	US  string `json:"us"`
	FS  string `json:"fs"`

	GroupID        string          `json:"group_id,omitempty"`
	Status         OrderStatus     `json:"status"`
	ScheduledStart time.Time       `json:"scheduled_start,omitempty"`
	ScheduledEnd   time.Time       `json:"scheduled_end,omitempty"`
	ResidualStock  decimal.Decimal `json:"residual_stock"`
	FailureReason  string          `json:"failure_reason,omitempty"`
}

// NewManufacturingOrder creates a validated ManufacturingOrder
func NewManufacturingOrder(
	id, designation string,
	productID ProductID,
	productType ProductType,
	bomLevel int,
	needDate time.Time,
	quantity decimal.Decimal,
	sourceQty string,
) (*ManufacturingOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}
	if productID.Normalized() == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if needDate.IsZero() {
		return nil, fmt.Errorf("need date cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("quantity cannot be negative, got %s", quantity)
	}
	if bomLevel < 0 {
		return nil, fmt.Errorf("bom level cannot be negative, got %d", bomLevel)
	}
	if sourceQty == "" {
		sourceQty = quantity.String()
	}

	return &ManufacturingOrder{
		ID:          id,
		Designation: designation,
		ProductID:   productID,
		ProductType: productType,
		BOMLevel:    bomLevel,
		NeedDate:    Day(needDate),
		Quantity:    quantity,
		SourceQty:   sourceQty,
		Unit:        "U",
		US:          "1",
		FS:          "1",
		Status:      Unassigned,
	}, nil
}

// Product returns the normalized product id of the order
func (o *ManufacturingOrder) Product() ProductID {
	return o.ProductID.Normalized()
}

// Clone returns a copy of the order that can be modified independently
func (o *ManufacturingOrder) Clone() *ManufacturingOrder {
	c := *o
	return &c
}

// Reset clears all planning state so the order can be planned again
func (o *ManufacturingOrder) Reset() {
	o.GroupID = ""
	o.Status = Unassigned
	o.ScheduledStart = time.Time{}
	o.ScheduledEnd = time.Time{}
	o.ResidualStock = decimal.Zero
	o.FailureReason = ""
}

// IsScheduled reports whether start and end dates were set by the scheduler
func (o *ManufacturingOrder) IsScheduled() bool {
	return !o.ScheduledStart.IsZero()
}

// Delay returns the number of whole days the scheduled start falls after the
// need date, or zero when the order starts on time or is not scheduled.
func (o *ManufacturingOrder) Delay() int {
	if !o.IsScheduled() {
		return 0
	}
	days := DaysBetween(o.NeedDate, o.ScheduledStart)
	if days < 0 {
		return 0
	}
	return days
}

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
