package allocation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/services"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
)

// Allocator computes how much of each product a group produces, how much of
// it is consumed by parents inside the group, and which orders carry the
// remaining stock. It never mutates its inputs.
type Allocator struct {
	logger logging.Logger
}

// NewAllocator creates a new consumption allocator
func NewAllocator(logger logging.Logger) *Allocator {
	return &Allocator{logger: logging.OrNop(logger)}
}

// Allocate computes the stock outcome of a group. Every member order must
// belong to the group; member BOM levels are used as resolved levels.
func (a *Allocator) Allocate(group *entities.Group, members []*entities.ManufacturingOrder, graph *services.BOMGraph) (*dto.GroupAllocation, error) {
	if group == nil {
		return nil, fmt.Errorf("group cannot be nil")
	}
	if graph == nil {
		return nil, fmt.Errorf("bom graph cannot be nil")
	}

	produced := make(map[entities.ProductID]decimal.Decimal)
	levels := make(map[entities.ProductID]int)
	byProduct := make(map[entities.ProductID][]*entities.ManufacturingOrder)

	for _, order := range members {
		if !group.Contains(order.ID) {
			return nil, fmt.Errorf("order %s is not a member of group %s", order.ID, group.ID)
		}
		p := order.Product()
		produced[p] = produced[p].Add(order.Quantity)
		if lvl, ok := levels[p]; !ok || order.BOMLevel > lvl {
			levels[p] = order.BOMLevel
		}
		byProduct[p] = append(byProduct[p], order)
	}

	net := make(map[entities.ProductID]decimal.Decimal, len(produced))
	consumption := make(map[entities.ProductID]decimal.Decimal, len(produced))
	for p := range produced {
		net[p] = decimal.Zero
		consumption[p] = decimal.Zero
	}

	for _, p := range productsByLevel(levels) {
		net[p] = net[p].Add(produced[p])
		for _, edge := range graph.Children(p) {
			if _, present := produced[edge.Child]; !present {
				continue
			}
			used := produced[p].Mul(edge.QtyPerParent)
			net[edge.Child] = net[edge.Child].Sub(used)
			consumption[edge.Child] = consumption[edge.Child].Add(used)
		}
	}

	residuals := make(map[string]decimal.Decimal, len(members))
	for p, orders := range byProduct {
		pool := decimal.Max(net[p], decimal.Zero)
		sorted := append([]*entities.ManufacturingOrder(nil), orders...)
		sort.Slice(sorted, func(i, j int) bool {
			if !sorted[i].NeedDate.Equal(sorted[j].NeedDate) {
				return sorted[i].NeedDate.Before(sorted[j].NeedDate)
			}
			return sorted[i].ID < sorted[j].ID
		})
		for _, order := range sorted {
			share := decimal.Min(pool, order.Quantity)
			residuals[order.ID] = share
			pool = pool.Sub(share)
		}
		if net[p].IsNegative() {
			a.logger.Debugf("group %s: product %s short by %s", group.ID, p, net[p].Neg())
		}
	}

	return &dto.GroupAllocation{
		GroupID:     group.ID,
		Residuals:   residuals,
		Produced:    produced,
		NetStock:    net,
		Consumption: consumption,
	}, nil
}

// Apply writes an allocation's summaries onto the group and its residuals onto
// copies of the member orders.
func Apply(group *entities.Group, members []*entities.ManufacturingOrder, alloc *dto.GroupAllocation) []*entities.ManufacturingOrder {
	for p, v := range alloc.Produced {
		group.Produced[p] = v
	}
	for p, v := range alloc.NetStock {
		group.NetStock[p] = v
	}
	for p, v := range alloc.Consumption {
		group.Consumption[p] = v
	}

	out := make([]*entities.ManufacturingOrder, 0, len(members))
	for _, order := range members {
		updated := order.Clone()
		updated.ResidualStock = alloc.Residuals[order.ID]
		out = append(out, updated)
	}
	return out
}

// productsByLevel orders products from the highest level to the lowest,
// then by id.
func productsByLevel(levels map[entities.ProductID]int) []entities.ProductID {
	products := make([]entities.ProductID, 0, len(levels))
	for p := range levels {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if levels[products[i]] != levels[products[j]] {
			return levels[products[i]] > levels[products[j]]
		}
		return products[i] < products[j]
	})
	return products
}
