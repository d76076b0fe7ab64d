package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/infrastructure/repositories/memory"
)

// Date parses a YYYY-MM-DD date in UTC - panics on invalid input
func Date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// At parses a "YYYY-MM-DD HH:MM" instant in UTC - panics on invalid input
func At(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

// MustOrder is a helper for tests - panics on validation error. The product
// type is derived from the product id prefix when it has one.
func MustOrder(id, product string, level int, need string, qty int64) *entities.ManufacturingOrder {
	productID := entities.ProductID(product)
	productType, err := entities.ProductTypeFromID(productID)
	if err != nil {
		productType = entities.UnknownProduct
	}
	order, err := entities.NewManufacturingOrder(
		id,
		"Order "+id,
		productID,
		productType,
		level,
		Date(need),
		decimal.NewFromInt(qty),
		"",
	)
	if err != nil {
		panic(err)
	}
	return order
}

// MustBOMEntry is a helper for tests - panics on validation error
func MustBOMEntry(parent, child string, qtyPer int64, childLevel int) entities.BOMEntry {
	entry, err := entities.NewBOMEntry(
		entities.ProductID(parent),
		entities.ProductID(child),
		decimal.NewFromInt(qtyPer),
		childLevel,
		0,
	)
	if err != nil {
		panic(err)
	}
	return *entry
}

// MustPost creates a post with the default working day - panics on validation error
func MustPost(id string) *calendar.Post {
	post, err := calendar.NewPost(id, "Post "+id, calendar.DefaultWorkingDay())
	if err != nil {
		panic(err)
	}
	return post
}

// Operation builds a routing step lasting the given number of minutes
func Operation(key, name, postID string, minutes, sequence int) entities.Operation {
	return entities.Operation{
		Key:      key,
		Name:     name,
		PostID:   postID,
		Duration: time.Duration(minutes) * time.Minute,
		Sequence: sequence,
		Priority: 1,
	}
}

// ThreeLevelScenario builds a base order of 200 PS1 (need 2024-01-16)
// feeding 50 SF1 at 4 per unit (need 2024-01-17), feeding 100 PF1 at 2 per
// unit (need 2024-01-18).
func ThreeLevelScenario() ([]*entities.ManufacturingOrder, []entities.BOMEntry) {
	orders := []*entities.ManufacturingOrder{
		MustOrder("MO-BASE", "PS1", 2, "2024-01-16", 200),
		MustOrder("MO-MID", "SF1", 1, "2024-01-17", 50),
		MustOrder("MO-TOP", "PF1", 0, "2024-01-18", 100),
	}
	entries := []entities.BOMEntry{
		MustBOMEntry("SF1", "PS1", 4, 2),
		MustBOMEntry("PF1", "SF1", 2, 1),
	}
	return orders, entries
}

// TwoFamiliesScenario builds two independent two-level families whose need
// dates are two months apart.
func TwoFamiliesScenario() ([]*entities.ManufacturingOrder, []entities.BOMEntry) {
	orders := []*entities.ManufacturingOrder{
		MustOrder("A-BASE", "PS1", 1, "2024-01-16", 100),
		MustOrder("A-TOP", "SF1", 0, "2024-01-17", 20),
		MustOrder("B-BASE", "PS2", 1, "2024-03-12", 80),
		MustOrder("B-TOP", "SF2", 0, "2024-03-13", 10),
	}
	entries := []entities.BOMEntry{
		MustBOMEntry("SF1", "PS1", 5, 1),
		MustBOMEntry("SF2", "PS2", 8, 1),
	}
	return orders, entries
}

// Repositories bundles the in-memory repositories a planning run reads from
type Repositories struct {
	Orders   *memory.OrderRepository
	BOM      *memory.BOMRepository
	Posts    *memory.PostRepository
	Routings *memory.RoutingRepository
}

// BuildRepositories loads the given data into fresh in-memory repositories
func BuildRepositories(
	orders []*entities.ManufacturingOrder,
	entries []entities.BOMEntry,
	posts []*calendar.Post,
	operations []entities.Operation,
) Repositories {
	repos := Repositories{
		Orders:   memory.NewOrderRepository(),
		BOM:      memory.NewBOMRepository(len(entries)),
		Posts:    memory.NewPostRepository(),
		Routings: memory.NewRoutingRepository(),
	}
	if err := repos.Orders.LoadOrders(orders); err != nil {
		panic(err)
	}
	if err := repos.BOM.LoadBOMEntries(entries); err != nil {
		panic(err)
	}
	if err := repos.Posts.LoadPosts(posts); err != nil {
		panic(err)
	}
	if err := repos.Routings.LoadOperations(operations); err != nil {
		panic(err)
	}
	return repos
}
