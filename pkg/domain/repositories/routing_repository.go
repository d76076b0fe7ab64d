package repositories

import "github.com/vsinha/moplan/pkg/domain/entities"

// RoutingRepository provides the ordered operations needed to make a product
type RoutingRepository interface {
	// Routing returns the operations keyed by the product id, falling back to
	// those keyed by the product type, sorted by sequence. An empty result
	// means the product has no routing.
	Routing(productID entities.ProductID, productType entities.ProductType) ([]entities.Operation, error)
	LoadOperations(operations []entities.Operation) error
}
