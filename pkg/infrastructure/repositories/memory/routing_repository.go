package memory

import (
	"sort"

	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/repositories"
)

// RoutingRepository stores operations keyed by product id or product type
type RoutingRepository struct {
	operations map[string][]entities.Operation
}

// NewRoutingRepository creates a new in-memory routing repository
func NewRoutingRepository() *RoutingRepository {
	return &RoutingRepository{
		operations: make(map[string][]entities.Operation),
	}
}

// Verify interface compliance
var _ repositories.RoutingRepository = (*RoutingRepository)(nil)

// LoadOperations loads operations into the repository. Keys are normalized
// the same way product ids are.
func (r *RoutingRepository) LoadOperations(operations []entities.Operation) error {
	for _, op := range operations {
		key := string(entities.NormalizeProductID(op.Key))
		r.operations[key] = append(r.operations[key], op)
	}
	return nil
}

// Routing returns the operations for a product, falling back to its product
// type, sorted by sequence. Operations sharing a sequence keep load order.
func (r *RoutingRepository) Routing(productID entities.ProductID, productType entities.ProductType) ([]entities.Operation, error) {
	ops, exists := r.operations[string(productID.Normalized())]
	if !exists || len(ops) == 0 {
		ops = r.operations[productType.String()]
	}
	if len(ops) == 0 {
		return nil, nil
	}

	routing := make([]entities.Operation, len(ops))
	copy(routing, ops)
	sort.SliceStable(routing, func(i, j int) bool {
		return routing[i].Sequence < routing[j].Sequence
	})
	return routing, nil
}
