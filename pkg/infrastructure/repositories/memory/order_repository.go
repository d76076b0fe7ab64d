package memory

import (
	"fmt"

	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/repositories"
)

// OrderRepository provides in-memory manufacturing order storage. Orders are
// handed out as copies so callers never mutate stored state by accident.
type OrderRepository struct {
	orders   []entities.ManufacturingOrder
	orderMap map[string]int
}

// NewOrderRepository creates a new in-memory order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   []entities.ManufacturingOrder{},
		orderMap: make(map[string]int),
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// LoadOrders loads orders into the repository. A later order with an
// already-known id replaces the earlier one.
func (r *OrderRepository) LoadOrders(orders []*entities.ManufacturingOrder) error {
	for _, order := range orders {
		if order == nil {
			return fmt.Errorf("cannot load nil order")
		}
		if index, exists := r.orderMap[order.ID]; exists {
			r.orders[index] = *order
			continue
		}
		r.orderMap[order.ID] = len(r.orders)
		r.orders = append(r.orders, *order)
	}
	return nil
}

// GetOrders returns copies of all orders in load order
func (r *OrderRepository) GetOrders() ([]*entities.ManufacturingOrder, error) {
	orders := make([]*entities.ManufacturingOrder, 0, len(r.orders))
	for i := range r.orders {
		orders = append(orders, r.orders[i].Clone())
	}
	return orders, nil
}

// GetOrder returns a copy of the order with the given id
func (r *OrderRepository) GetOrder(id string) (*entities.ManufacturingOrder, error) {
	index, exists := r.orderMap[id]
	if !exists {
		return nil, fmt.Errorf("order %s: %w", id, repositories.ErrNotFound)
	}
	return r.orders[index].Clone(), nil
}

// SaveOrders replaces stored orders with the given copies
func (r *OrderRepository) SaveOrders(orders []*entities.ManufacturingOrder) error {
	for _, order := range orders {
		index, exists := r.orderMap[order.ID]
		if !exists {
			return fmt.Errorf("order %s: %w", order.ID, repositories.ErrNotFound)
		}
		r.orders[index] = *order
	}
	return nil
}
