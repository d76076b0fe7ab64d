package repositories

import "github.com/vsinha/moplan/pkg/domain/entities"

// OrderRepository provides access to manufacturing orders
type OrderRepository interface {
	GetOrders() ([]*entities.ManufacturingOrder, error)
	GetOrder(id string) (*entities.ManufacturingOrder, error)
	LoadOrders(orders []*entities.ManufacturingOrder) error

	// SaveOrders replaces stored orders with the given planned copies, matched by id.
	SaveOrders(orders []*entities.ManufacturingOrder) error
}
