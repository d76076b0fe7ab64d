package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroupIDPrefix prefixes every generated group identifier
const GroupIDPrefix = "GRP"

// Group clusters related orders of one BOM family inside a need-date window
type Group struct {
	ID            string
	AnchorProduct ProductID
	WindowStart   time.Time
	// WindowEnd is the last admissible need day (inclusive).
	WindowEnd time.Time
	Members   []string

	Produced     map[ProductID]decimal.Decimal
	NetStock     map[ProductID]decimal.Decimal
	Consumption  map[ProductID]decimal.Decimal
	Requirements map[ProductID]decimal.Decimal
}

// NewGroup creates a validated Group with no members
func NewGroup(number int, anchorProduct ProductID, windowStart, windowEnd time.Time) (*Group, error) {
	if number <= 0 {
		return nil, fmt.Errorf("group number must be positive, got %d", number)
	}
	if anchorProduct.Normalized() == "" {
		return nil, fmt.Errorf("anchor product cannot be empty")
	}
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("window end %s cannot be before window start %s",
			windowEnd.Format("2006-01-02"), windowStart.Format("2006-01-02"))
	}

	return &Group{
		ID:            GroupIDPrefix + strconv.Itoa(number),
		AnchorProduct: anchorProduct.Normalized(),
		WindowStart:   Day(windowStart),
		WindowEnd:     Day(windowEnd),
		Produced:      make(map[ProductID]decimal.Decimal),
		NetStock:      make(map[ProductID]decimal.Decimal),
		Consumption:   make(map[ProductID]decimal.Decimal),
		Requirements:  make(map[ProductID]decimal.Decimal),
	}, nil
}

// AddMember appends an order to the group. Membership only grows.
func (g *Group) AddMember(orderID string) {
	if g.Contains(orderID) {
		return
	}
	g.Members = append(g.Members, orderID)
}

// Contains reports whether the order is a member of the group
func (g *Group) Contains(orderID string) bool {
	for _, id := range g.Members {
		if id == orderID {
			return true
		}
	}
	return false
}

// InWindow reports whether a need date falls inside the group window
func (g *Group) InWindow(needDate time.Time) bool {
	d := Day(needDate)
	return !d.Before(g.WindowStart) && !d.After(g.WindowEnd)
}

// Number returns the numeric suffix of the group id, or zero if it has none
func (g *Group) Number() int {
	n, err := strconv.Atoi(strings.TrimPrefix(g.ID, GroupIDPrefix))
	if err != nil {
		return 0
	}
	return n
}

// NetStockFor returns the net produced-minus-consumed stock of a product
func (g *Group) NetStockFor(product ProductID) decimal.Decimal {
	return g.NetStock[product.Normalized()]
}
