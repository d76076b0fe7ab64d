package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

// GroupAllocation is the stock and consumption outcome of one group
type GroupAllocation struct {
	GroupID string `json:"group_id"`
	// Residuals maps order id to the stock that order leaves behind.
	Residuals   map[string]decimal.Decimal             `json:"residuals"`
	Produced    map[entities.ProductID]decimal.Decimal `json:"produced"`
	NetStock    map[entities.ProductID]decimal.Decimal `json:"net_stock"`
	Consumption map[entities.ProductID]decimal.Decimal `json:"consumption"`
}

// GroupingResult is the outcome of the grouping phase
type GroupingResult struct {
	Groups []*entities.Group
	// Orders are updated copies of every input order, in input order.
	Orders         []*entities.ManufacturingOrder
	Allocations    map[string]*GroupAllocation
	SkippedAnchors []string
	Unassigned     []string
}

// ScheduleDecision records one committed operation step
type ScheduleDecision struct {
	OrderID   string    `json:"order_id" yaml:"order_id"`
	GroupID   string    `json:"group_id" yaml:"group_id"`
	Step      int       `json:"step" yaml:"step"`
	Operation string    `json:"operation" yaml:"operation"`
	PostID    string    `json:"post_id" yaml:"post_id"`
	Start     time.Time `json:"start" yaml:"start"`
	End       time.Time `json:"end" yaml:"end"`
}

// ScheduleResult is the outcome of the scheduling phase
type ScheduleResult struct {
	Orders    []*entities.ManufacturingOrder
	Decisions []ScheduleDecision
}

// RunStats summarises a planning run for logs and metrics
type RunStats struct {
	RunID          string
	Orders         int
	Groups         int
	SkippedAnchors int
	Unassigned     int
	StatusCounts   map[entities.OrderStatus]int
	PhaseDurations map[string]time.Duration
	// BookedHours maps post id to the hours booked on it.
	BookedHours map[string]float64
	HeapAlloc   uint64
	Elapsed     time.Duration
}

// PlanResult contains the complete output of a planning run
type PlanResult struct {
	RunID          string
	StartedAt      time.Time
	Params         Params
	Groups         []*entities.Group
	Allocations    map[string]*GroupAllocation
	Orders         []*entities.ManufacturingOrder
	Decisions      []ScheduleDecision
	SkippedAnchors []string
	Unassigned     []string
	Warnings       []string
	Stats          RunStats
}

// OrdersByGroup returns the orders of a group in member order
func (r *PlanResult) OrdersByGroup(group *entities.Group) []*entities.ManufacturingOrder {
	byID := make(map[string]*entities.ManufacturingOrder, len(r.Orders))
	for _, o := range r.Orders {
		byID[o.ID] = o
	}
	out := make([]*entities.ManufacturingOrder, 0, len(group.Members))
	for _, id := range group.Members {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// UnassignedOrders returns the orders that belong to no group, in input order
func (r *PlanResult) UnassignedOrders() []*entities.ManufacturingOrder {
	out := make([]*entities.ManufacturingOrder, 0, len(r.Unassigned))
	for _, o := range r.Orders {
		if o.GroupID == "" {
			out = append(out, o)
		}
	}
	return out
}
