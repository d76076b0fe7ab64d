package grouping

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/application/services/allocation"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/services"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
)

// Engine clusters orders of one BOM family whose need dates fall inside a
// window opened by an anchor order.
type Engine struct {
	graph     *services.BOMGraph
	allocator *allocation.Allocator
	params    dto.Params
	logger    logging.Logger
	store     events.EventStore
}

// NewEngine creates a grouping engine. logger and store may be nil.
func NewEngine(
	graph *services.BOMGraph,
	allocator *allocation.Allocator,
	params dto.Params,
	logger logging.Logger,
	store events.EventStore,
) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("bom graph cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planning parameters: %w", err)
	}
	logger = logging.OrNop(logger)
	if allocator == nil {
		allocator = allocation.NewAllocator(logger)
	}

	return &Engine{
		graph:     graph,
		allocator: allocator,
		params:    params,
		logger:    logger,
		store:     store,
	}, nil
}

// Run groups the given orders. Inputs are not modified; the result carries
// updated copies in input order. Orders already carrying a group id are
// treated as assigned.
func (e *Engine) Run(orders []*entities.ManufacturingOrder) (*dto.GroupingResult, error) {
	work := make([]*entities.ManufacturingOrder, len(orders))
	index := make(map[string]int, len(orders))
	for i, order := range orders {
		c := order.Clone()
		c.BOMLevel = e.graph.Level(c.Product(), c.BOMLevel)
		work[i] = c
		index[c.ID] = i
	}

	result := &dto.GroupingResult{
		Allocations: make(map[string]*dto.GroupAllocation),
	}
	resolver := services.NewComponentResolver(e.graph)
	skipped := make(map[string]bool)

	for {
		anchor := nextAnchor(work, skipped)
		if anchor == nil {
			break
		}

		windowStart := anchor.NeedDate
		windowEnd := windowStart.AddDate(0, 0, e.params.HorizonDays()-1)
		candidates := e.candidates(work, anchor, windowStart, windowEnd)
		related := e.filterRelated(candidates)

		if len(related) < 2 || !containsOrder(related, anchor.ID) {
			skipped[anchor.ID] = true
			result.SkippedAnchors = append(result.SkippedAnchors, anchor.ID)
			reason := "no related candidates in window"
			e.logger.Warnf("anchor %s (%s, level %d) skipped: %s (%d candidates, %d related)",
				anchor.ID, anchor.Product(), anchor.BOMLevel, reason, len(candidates), len(related))
			if err := events.Publish(e.store, events.NewAnchorSkippedEvent(anchor.ID, len(candidates), reason)); err != nil {
				e.logger.Warnf("publishing anchor skip for %s: %v", anchor.ID, err)
			}
			continue
		}

		group, err := entities.NewGroup(len(result.Groups)+1, anchor.Product(), windowStart, windowEnd)
		if err != nil {
			return nil, fmt.Errorf("creating group for anchor %s: %w", anchor.ID, err)
		}

		members := orderMembers(anchor, related)
		for _, m := range members {
			group.AddMember(m.ID)
			m.GroupID = group.ID
			m.Status = entities.Assigned
		}

		e.summariseRequirements(resolver, group, members)

		alloc, err := e.allocator.Allocate(group, members, e.graph)
		if err != nil {
			return nil, fmt.Errorf("allocating group %s: %w", group.ID, err)
		}
		for _, updated := range allocation.Apply(group, members, alloc) {
			work[index[updated.ID]] = updated
		}

		result.Groups = append(result.Groups, group)
		result.Allocations[group.ID] = alloc

		e.logger.Debugw("group created", map[string]any{
			"group":   group.ID,
			"anchor":  anchor.ID,
			"product": string(group.AnchorProduct),
			"window":  fmt.Sprintf("%s..%s", group.WindowStart.Format("2006-01-02"), group.WindowEnd.Format("2006-01-02")),
			"members": len(group.Members),
		})
		if err := events.Publish(e.store, events.NewGroupCreatedEvent(group, anchor.ID)); err != nil {
			e.logger.Warnf("publishing group %s: %v", group.ID, err)
		}
	}

	for _, order := range work {
		if order.GroupID == "" {
			result.Unassigned = append(result.Unassigned, order.ID)
		}
	}
	result.Orders = work

	e.logger.Infof("grouping produced %d groups, %d skipped anchors, %d unassigned orders",
		len(result.Groups), len(result.SkippedAnchors), len(result.Unassigned))
	return result, nil
}

// nextAnchor picks the unassigned, not yet skipped order with the highest
// non-zero level, then the earliest need date, then the smallest id.
func nextAnchor(orders []*entities.ManufacturingOrder, skipped map[string]bool) *entities.ManufacturingOrder {
	var best *entities.ManufacturingOrder
	for _, o := range orders {
		if o.GroupID != "" || skipped[o.ID] || o.BOMLevel <= 0 {
			continue
		}
		if best == nil || anchorBefore(o, best) {
			best = o
		}
	}
	return best
}

func anchorBefore(a, b *entities.ManufacturingOrder) bool {
	if a.BOMLevel != b.BOMLevel {
		return a.BOMLevel > b.BOMLevel
	}
	if !a.NeedDate.Equal(b.NeedDate) {
		return a.NeedDate.Before(b.NeedDate)
	}
	return a.ID < b.ID
}

func (e *Engine) candidates(orders []*entities.ManufacturingOrder, anchor *entities.ManufacturingOrder, start, end time.Time) []*entities.ManufacturingOrder {
	family := e.graph.Family(anchor.Product())
	var out []*entities.ManufacturingOrder
	for _, o := range orders {
		if o.GroupID != "" || !family.Has(o.Product()) {
			continue
		}
		need := entities.Day(o.NeedDate)
		if need.Before(start) || need.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// filterRelated keeps candidates whose product has a direct BOM relation
// with the product of at least one other candidate.
func (e *Engine) filterRelated(candidates []*entities.ManufacturingOrder) []*entities.ManufacturingOrder {
	products := make(map[entities.ProductID]struct{})
	for _, c := range candidates {
		products[c.Product()] = struct{}{}
	}

	var out []*entities.ManufacturingOrder
	for _, c := range candidates {
		for other := range products {
			if other != c.Product() && e.graph.Related(c.Product(), other) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// orderMembers puts the anchor first, then the remaining orders by
// descending level, need date, product id and order id.
func orderMembers(anchor *entities.ManufacturingOrder, related []*entities.ManufacturingOrder) []*entities.ManufacturingOrder {
	rest := make([]*entities.ManufacturingOrder, 0, len(related)-1)
	for _, o := range related {
		if o.ID != anchor.ID {
			rest = append(rest, o)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.BOMLevel != b.BOMLevel {
			return a.BOMLevel > b.BOMLevel
		}
		if !a.NeedDate.Equal(b.NeedDate) {
			return a.NeedDate.Before(b.NeedDate)
		}
		if a.Product() != b.Product() {
			return a.Product() < b.Product()
		}
		return a.ID < b.ID
	})
	return append([]*entities.ManufacturingOrder{anchor}, rest...)
}

// summariseRequirements records the total component quantities the group's
// orders call for. A cyclic BOM leaves the summary empty.
func (e *Engine) summariseRequirements(resolver *services.ComponentResolver, group *entities.Group, members []*entities.ManufacturingOrder) {
	total := make(map[entities.ProductID]decimal.Decimal)
	for _, m := range members {
		req, err := resolver.Requirements(m.Product(), m.Quantity)
		if err != nil {
			e.logger.Warnf("group %s: requirements of %s not computed: %v", group.ID, m.ID, err)
			return
		}
		for p, qty := range req {
			total[p] = total[p].Add(qty)
		}
	}
	for p, qty := range total {
		group.Requirements[p] = qty
	}
}

func containsOrder(orders []*entities.ManufacturingOrder, id string) bool {
	for _, o := range orders {
		if o.ID == id {
			return true
		}
	}
	return false
}
