package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

// ErrBOMCycle is returned when quantity propagation revisits a product on its own path
var ErrBOMCycle = errors.New("bom cycle detected")

type componentKey struct {
	parent    entities.ProductID
	component entities.ProductID
}

// ComponentResolver computes how many units of a component one unit of a
// product requires, summed over every BOM path. Results are memoized for the
// lifetime of the resolver.
type ComponentResolver struct {
	graph      *BOMGraph
	memo       map[componentKey]decimal.Decimal
	inProgress map[componentKey]bool
	path       []entities.ProductID
}

// NewComponentResolver creates a resolver over the given graph
func NewComponentResolver(graph *BOMGraph) *ComponentResolver {
	return &ComponentResolver{
		graph:      graph,
		memo:       make(map[componentKey]decimal.Decimal),
		inProgress: make(map[componentKey]bool),
	}
}

// QuantityOf returns the quantity of component contained in one unit of
// product. A product contains exactly one of itself; unrelated products
// contain zero.
func (r *ComponentResolver) QuantityOf(product, component entities.ProductID) (decimal.Decimal, error) {
	r.path = r.path[:0]
	return r.resolve(product.Normalized(), component.Normalized())
}

func (r *ComponentResolver) resolve(parent, component entities.ProductID) (decimal.Decimal, error) {
	if parent == component {
		return decimal.NewFromInt(1), nil
	}

	key := componentKey{parent: parent, component: component}
	if qty, ok := r.memo[key]; ok {
		return qty, nil
	}
	if r.inProgress[key] {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrBOMCycle, r.describeCycle(parent))
	}

	r.inProgress[key] = true
	r.path = append(r.path, parent)
	defer func() {
		delete(r.inProgress, key)
		r.path = r.path[:len(r.path)-1]
	}()

	total := decimal.Zero
	for _, edge := range r.graph.Children(parent) {
		qty, err := r.resolve(edge.Child, component)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(edge.QtyPerParent.Mul(qty))
	}

	r.memo[key] = total
	return total, nil
}

// Requirements returns the quantity of every component needed to produce qty
// units of product, the product itself excluded.
func (r *ComponentResolver) Requirements(product entities.ProductID, qty decimal.Decimal) (map[entities.ProductID]decimal.Decimal, error) {
	out := make(map[entities.ProductID]decimal.Decimal)
	for _, component := range r.graph.Descendants(product) {
		per, err := r.QuantityOf(product, component)
		if err != nil {
			return nil, fmt.Errorf("resolving %s in %s: %w", component, product.Normalized(), err)
		}
		if per.IsZero() {
			continue
		}
		out[component] = per.Mul(qty)
	}
	return out, nil
}

func (r *ComponentResolver) describeCycle(repeated entities.ProductID) string {
	start := 0
	for i, p := range r.path {
		if p == repeated {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(r.path)-start+1)
	for _, p := range r.path[start:] {
		parts = append(parts, string(p))
	}
	parts = append(parts, string(repeated))
	return strings.Join(parts, " -> ")
}
