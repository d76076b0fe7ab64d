package orchestration

import (
	"context"
	"errors"
	"testing"

	"github.com/vsinha/moplan/pkg/application/dto"
	testinghelpers "github.com/vsinha/moplan/pkg/application/services/testing"
	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
	"github.com/vsinha/moplan/pkg/infrastructure/metrics"
)

type recordingSink struct {
	runs []dto.RunStats
}

func (s *recordingSink) RecordRun(stats dto.RunStats) error {
	s.runs = append(s.runs, stats)
	return nil
}

func threeLevelRepositories() testinghelpers.Repositories {
	orders, entries := testinghelpers.ThreeLevelScenario()
	posts := []*calendar.Post{testinghelpers.MustPost("P1"), testinghelpers.MustPost("P2")}
	ops := []entities.Operation{
		testinghelpers.Operation("PS", "Weigh", "P1", 60, 10),
		testinghelpers.Operation("SF", "Blend", "P2", 120, 10),
		testinghelpers.Operation("PF", "Fill", "P1", 30, 10),
	}
	return testinghelpers.BuildRepositories(orders, entries, posts, ops)
}

func newOrchestrator(repos testinghelpers.Repositories, store events.EventStore, sink metrics.Sink) *PlanningOrchestrator {
	return NewPlanningOrchestrator(repos.Orders, repos.BOM, repos.Posts, repos.Routings, dto.DefaultParams(), nil, store, sink)
}

func TestPlanningOrchestrator_ThreeLevelScenario(t *testing.T) {
	repos := threeLevelRepositories()
	store := events.NewInMemoryEventStore()
	sink := &recordingSink{}

	result, err := newOrchestrator(repos, store, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Groups))
	}
	group := result.Groups[0]
	if got := group.WindowStart.Format("2006-01-02"); got != "2024-01-16" {
		t.Errorf("window start = %s, want 2024-01-16", got)
	}
	if len(group.Members) != 3 {
		t.Errorf("expected 3 members, got %v", group.Members)
	}

	for _, order := range result.Orders {
		if order.Status != entities.PlannedOnTime {
			t.Errorf("order %s status = %s, want PLANNED (%s)", order.ID, order.Status, order.FailureReason)
		}
	}
	if len(result.Decisions) != 3 {
		t.Errorf("expected 3 decisions, got %d", len(result.Decisions))
	}

	alloc := result.Allocations[group.ID]
	if alloc == nil {
		t.Fatalf("no allocation for %s", group.ID)
	}
	if !alloc.NetStock["PS1"].IsZero() {
		t.Errorf("base net stock = %s, want 0", alloc.NetStock["PS1"])
	}
	if !alloc.Residuals["MO-MID"].IsZero() {
		t.Errorf("mid residual = %s, want 0", alloc.Residuals["MO-MID"])
	}
	if got := alloc.Residuals["MO-TOP"].String(); got != "100" {
		t.Errorf("top residual = %s, want 100", got)
	}

	stored, err := repos.Orders.GetOrder("MO-TOP")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !stored.IsScheduled() || stored.GroupID != group.ID {
		t.Errorf("planned order not saved: %+v", stored)
	}

	if len(sink.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(sink.runs))
	}
	stats := sink.runs[0]
	if stats.StatusCounts[entities.PlannedOnTime] != 3 {
		t.Errorf("status counts = %v", stats.StatusCounts)
	}
	if stats.BookedHours["P1"] != 1.5 || stats.BookedHours["P2"] != 2 {
		t.Errorf("booked hours = %v, want P1 1.5 and P2 2", stats.BookedHours)
	}
	for _, phase := range []string{PhaseValidation, PhaseGrouping, PhaseScheduling} {
		if _, ok := stats.PhaseDurations[phase]; !ok {
			t.Errorf("missing phase duration %s", phase)
		}
	}
	if store.CountByType()[events.RunCompletedEvent] != 1 {
		t.Error("expected one run completed event")
	}
}

func TestPlanningOrchestrator_RerunIsIdempotent(t *testing.T) {
	repos := threeLevelRepositories()
	orchestrator := newOrchestrator(repos, nil, nil)

	first, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first.RunID == second.RunID {
		t.Error("run ids should differ between runs")
	}
	if len(first.Decisions) != len(second.Decisions) {
		t.Fatalf("decision count changed: %d vs %d", len(first.Decisions), len(second.Decisions))
	}
	for i := range first.Decisions {
		if first.Decisions[i] != second.Decisions[i] {
			t.Errorf("decision %d changed: %+v vs %+v", i, first.Decisions[i], second.Decisions[i])
		}
	}
	for i := range first.Orders {
		a, b := first.Orders[i], second.Orders[i]
		if a.Status != b.Status || !a.ScheduledStart.Equal(b.ScheduledStart) || a.GroupID != b.GroupID {
			t.Errorf("order %s changed between runs", a.ID)
		}
	}

	p1, _ := repos.Posts.GetPost("P1")
	if n := len(p1.Bookings()); n != 2 {
		t.Errorf("P1 holds %d bookings after re-run, want 2", n)
	}
}

func TestPlanningOrchestrator_TwoFamilies(t *testing.T) {
	orders, entries := testinghelpers.TwoFamiliesScenario()
	repos := testinghelpers.BuildRepositories(orders, entries,
		[]*calendar.Post{testinghelpers.MustPost("P1")},
		[]entities.Operation{
			testinghelpers.Operation("PS", "Weigh", "P1", 60, 10),
			testinghelpers.Operation("SF", "Blend", "P1", 60, 10),
		})

	result, err := newOrchestrator(repos, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	if len(result.UnassignedOrders()) != 0 {
		t.Errorf("unexpected unassigned orders: %v", result.Unassigned)
	}
	for _, g := range result.Groups {
		if members := result.OrdersByGroup(g); len(members) != 2 {
			t.Errorf("group %s has %d members, want 2", g.ID, len(members))
		}
	}
}

func TestPlanningOrchestrator_Errors(t *testing.T) {
	empty := testinghelpers.BuildRepositories(nil, nil, nil, nil)
	_, err := newOrchestrator(empty, nil, nil).Run(context.Background())
	if !errors.Is(err, ErrNoOrders) {
		t.Errorf("expected ErrNoOrders, got %v", err)
	}

	repos := threeLevelRepositories()
	bad := NewPlanningOrchestrator(repos.Orders, repos.BOM, repos.Posts, repos.Routings,
		dto.Params{HorizonWeeks: 0, AdvanceWeeks: 3}, nil, nil, nil)
	if _, err := bad.Run(context.Background()); err == nil {
		t.Error("expected error for invalid parameters")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newOrchestrator(repos, nil, nil).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPlanningOrchestrator_ReportsBOMCycles(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testinghelpers.MustOrder("MO1", "SF1", 1, "2024-01-16", 10),
		testinghelpers.MustOrder("MO2", "SF2", 1, "2024-01-17", 10),
	}
	entries := []entities.BOMEntry{
		testinghelpers.MustBOMEntry("SF1", "SF2", 1, 1),
		testinghelpers.MustBOMEntry("SF2", "SF1", 1, 1),
	}
	repos := testinghelpers.BuildRepositories(orders, entries, nil, nil)

	result, err := newOrchestrator(repos, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("a cyclic BOM must not abort the run: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a cycle warning")
	}
}
