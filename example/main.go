package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/application/services/orchestration"
	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
	"github.com/vsinha/moplan/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	// Create repositories
	orderRepo := memory.NewOrderRepository()
	bomRepo := memory.NewBOMRepository(4)
	postRepo := memory.NewPostRepository()
	routingRepo := memory.NewRoutingRepository()

	// Set up a small bread family: dough feeds loaves, loaves feed boxes
	if err := setupBreadFamily(orderRepo, bomRepo, postRepo, routingRepo); err != nil {
		fmt.Printf("setup failed: %v\n", err)
		return
	}

	store := events.NewInMemoryEventStore()
	orchestrator := orchestration.NewPlanningOrchestrator(
		orderRepo, bomRepo, postRepo, routingRepo,
		dto.DefaultParams(), nil, store, nil,
	)

	fmt.Println("Running planning for the bread family...")
	result, err := orchestrator.Run(ctx)
	if err != nil {
		fmt.Printf("planning failed: %v\n", err)
		return
	}

	fmt.Println("Groups:")
	for _, g := range result.Groups {
		fmt.Printf("  %s anchor %s, window %s to %s, members %v\n",
			g.ID, g.AnchorProduct,
			g.WindowStart.Format("2006-01-02"), g.WindowEnd.Format("2006-01-02"), g.Members)
		for product, stock := range g.NetStock {
			fmt.Printf("    net stock %s: %s\n", product, stock.StringFixed(2))
		}
	}
	fmt.Println()

	fmt.Println("Orders:")
	for _, o := range result.Orders {
		line := fmt.Sprintf("  %-8s %-4s level %d need %s  %s",
			o.ID, o.ProductID, o.BOMLevel, o.NeedDate.Format("2006-01-02"), o.Status)
		if o.IsScheduled() {
			line += fmt.Sprintf("  %s -> %s (delay %dd)",
				o.ScheduledStart.Format("01-02 15:04"), o.ScheduledEnd.Format("01-02 15:04"), o.Delay())
		}
		fmt.Println(line)
	}
	fmt.Println()

	fmt.Println("Post bookings:")
	for _, d := range result.Decisions {
		fmt.Printf("  %s %-6s %-8s step %d  %s -> %s\n",
			d.PostID, d.Operation, d.OrderID, d.Step,
			d.Start.Format("01-02 15:04"), d.End.Format("01-02 15:04"))
	}
	fmt.Println()

	fmt.Printf("Events recorded: %v\n", store.CountByType())
}

func setupBreadFamily(
	orderRepo *memory.OrderRepository,
	bomRepo *memory.BOMRepository,
	postRepo *memory.PostRepository,
	routingRepo *memory.RoutingRepository,
) error {
	need := func(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }

	orders := []struct {
		id, designation string
		product         entities.ProductID
		productType     entities.ProductType
		level           int
		needDate        time.Time
		qty             int64
	}{
		{"MO100", "Sourdough dough", "PS10", entities.Base, 2, need(10), 120},
		{"MO101", "Sourdough dough", "PS10", entities.Base, 2, need(17), 80},
		{"MO200", "Sourdough loaf", "SF20", entities.SemiFinished, 1, need(12), 150},
		{"MO300", "Loaf box of 6", "PF30", entities.Finished, 0, need(14), 20},
	}
	var mos []*entities.ManufacturingOrder
	for _, o := range orders {
		mo, err := entities.NewManufacturingOrder(o.id, o.designation, o.product, o.productType,
			o.level, o.needDate, decimal.NewFromInt(o.qty), "")
		if err != nil {
			return err
		}
		mos = append(mos, mo)
	}
	if err := orderRepo.LoadOrders(mos); err != nil {
		return err
	}

	// 0.5 kg of dough per loaf, 6 loaves per box
	bomLines := []struct {
		parent, child entities.ProductID
		qtyPer        string
		childLevel    int
	}{
		{"SF20", "PS10", "0.5", 2},
		{"PF30", "SF20", "6", 1},
	}
	for _, line := range bomLines {
		entry, err := entities.NewBOMEntry(line.parent, line.child, decimal.RequireFromString(line.qtyPer), line.childLevel, line.childLevel-1)
		if err != nil {
			return err
		}
		bomRepo.AddBOMEntry(*entry)
	}

	var posts []*calendar.Post
	for _, id := range []string{"MIXER", "OVEN", "PACK"} {
		post, err := calendar.NewPost(id, id, calendar.DefaultWorkingDay())
		if err != nil {
			return err
		}
		posts = append(posts, post)
	}
	// The oven is serviced on the 11th
	if err := posts[1].AddUnavailability(need(11), need(11)); err != nil {
		return err
	}
	if err := postRepo.LoadPosts(posts); err != nil {
		return err
	}

	steps := []struct {
		key, name, post string
		hours           string
		sequence        int
	}{
		{"PS", "Knead", "MIXER", "1.5", 10},
		{"PS", "Proof", "MIXER", "2", 20},
		{"SF", "Bake", "OVEN", "3", 10},
		{"PF", "Box", "PACK", "0.5", 10},
	}
	var operations []entities.Operation
	for _, s := range steps {
		op, err := entities.NewOperation(s.key, s.name, s.post, decimal.RequireFromString(s.hours), s.sequence, 1)
		if err != nil {
			return err
		}
		operations = append(operations, *op)
	}
	return routingRepo.LoadOperations(operations)
}
