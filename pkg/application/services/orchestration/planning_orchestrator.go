package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/application/services/allocation"
	"github.com/vsinha/moplan/pkg/application/services/grouping"
	"github.com/vsinha/moplan/pkg/application/services/scheduling"
	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/repositories"
	"github.com/vsinha/moplan/pkg/domain/services"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
	"github.com/vsinha/moplan/pkg/infrastructure/metrics"
	"github.com/vsinha/moplan/pkg/infrastructure/repositories/memory"
)

// ErrNoOrders is returned when a run has no manufacturing orders to plan
var ErrNoOrders = errors.New("no manufacturing orders to plan")

const (
	PhaseValidation = "validation"
	PhaseGrouping   = "grouping"
	PhaseScheduling = "scheduling"
)

// PlanningOrchestrator coordinates grouping, allocation and scheduling over
// the repositories of one planning data set
type PlanningOrchestrator struct {
	orderRepo   repositories.OrderRepository
	bomRepo     repositories.BOMRepository
	postRepo    repositories.PostRepository
	routingRepo repositories.RoutingRepository
	params      dto.Params

	logger    logging.Logger
	store     events.EventStore
	sink      metrics.Sink
	validator *services.BOMValidator
}

// NewPlanningOrchestrator creates a new planning orchestrator. logger, store
// and sink may be nil.
func NewPlanningOrchestrator(
	orderRepo repositories.OrderRepository,
	bomRepo repositories.BOMRepository,
	postRepo repositories.PostRepository,
	routingRepo repositories.RoutingRepository,
	params dto.Params,
	logger logging.Logger,
	store events.EventStore,
	sink metrics.Sink,
) *PlanningOrchestrator {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &PlanningOrchestrator{
		orderRepo:   orderRepo,
		bomRepo:     bomRepo,
		postRepo:    postRepo,
		routingRepo: routingRepo,
		params:      params,
		logger:      logging.OrNop(logger),
		store:       store,
		sink:        sink,
		validator:   services.NewBOMValidator(),
	}
}

// Run performs a complete planning run and saves the planned orders back to
// the order repository. Planning state left by an earlier run is discarded
// first, so running twice on the same repositories gives the same result.
func (po *PlanningOrchestrator) Run(ctx context.Context) (*dto.PlanResult, error) {
	if err := po.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planning parameters: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &dto.PlanResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Params:    po.params,
	}
	phases := make(map[string]time.Duration, 3)

	orders, err := po.orderRepo.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	for _, order := range orders {
		order.Reset()
	}

	posts, err := po.postRepo.GetAllPosts()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	for _, post := range posts {
		post.ClearBookings()
	}

	entries, err := po.bomRepo.GetAllBOMEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to load BOM entries: %w", err)
	}

	// Step 1: validate inputs; findings are reported but never stop the run
	phaseStart := time.Now()
	result.Warnings = po.validate(entries, orders)
	phases[PhaseValidation] = time.Since(phaseStart)

	// Step 2: group orders and allocate consumption inside each group
	phaseStart = time.Now()
	graph := services.NewBOMGraph(entries)
	engine, err := grouping.NewEngine(graph, allocation.NewAllocator(po.logger), po.params, po.logger, po.store)
	if err != nil {
		return nil, fmt.Errorf("failed to create grouping engine: %w", err)
	}
	grouped, err := engine.Run(orders)
	if err != nil {
		return nil, fmt.Errorf("failed to group orders: %w", err)
	}
	phases[PhaseGrouping] = time.Since(phaseStart)
	po.logger.Infof("grouping: %d groups, %d skipped anchors, %d unassigned orders",
		len(grouped.Groups), len(grouped.SkippedAnchors), len(grouped.Unassigned))

	// Step 3: schedule the grouped orders onto posts
	phaseStart = time.Now()
	scheduler, err := scheduling.NewScheduler(po.postRepo, po.routingRepo, po.params, po.logger, po.store)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduled, err := scheduler.Schedule(ctx, grouped.Groups, grouped.Orders)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule orders: %w", err)
	}
	phases[PhaseScheduling] = time.Since(phaseStart)

	if err := po.orderRepo.SaveOrders(scheduled.Orders); err != nil {
		return nil, fmt.Errorf("failed to save planned orders: %w", err)
	}

	result.Groups = grouped.Groups
	result.Allocations = grouped.Allocations
	result.SkippedAnchors = grouped.SkippedAnchors
	result.Unassigned = grouped.Unassigned
	result.Orders = scheduled.Orders
	result.Decisions = scheduled.Decisions
	result.Stats = po.buildStats(result, posts, phases, time.Since(started))

	if err := po.sink.RecordRun(result.Stats); err != nil {
		po.logger.Warnf("recording run metrics: %v", err)
	}
	if err := events.Publish(po.store, events.NewRunCompletedEvent(result.RunID, len(result.Groups), len(result.Orders), result.Stats.Elapsed)); err != nil {
		po.logger.Warnf("publishing run completion: %v", err)
	}
	po.logger.Infof("run %s: %d orders, %d planned, %d late, %d failed in %s (heap %s)",
		result.RunID,
		result.Stats.Orders,
		result.Stats.StatusCounts[entities.PlannedOnTime]+result.Stats.StatusCounts[entities.PlannedLate],
		result.Stats.StatusCounts[entities.PlannedLate],
		result.Stats.StatusCounts[entities.FailedPlanning]+result.Stats.StatusCounts[entities.FailedNoOperations],
		result.Stats.Elapsed,
		memory.FormatBytes(result.Stats.HeapAlloc))

	return result, nil
}

func (po *PlanningOrchestrator) validate(entries []entities.BOMEntry, orders []*entities.ManufacturingOrder) []string {
	var warnings []string
	for _, r := range []*services.ValidationResult{
		po.validator.ValidateBOM(entries),
		po.validator.ValidateOrders(orders),
	} {
		for _, msg := range r.Errors {
			po.logger.Warnf("%s", msg)
			warnings = append(warnings, msg)
		}
	}
	return warnings
}

func (po *PlanningOrchestrator) buildStats(
	result *dto.PlanResult,
	posts []*calendar.Post,
	phases map[string]time.Duration,
	elapsed time.Duration,
) dto.RunStats {
	stats := dto.RunStats{
		RunID:          result.RunID,
		Orders:         len(result.Orders),
		Groups:         len(result.Groups),
		SkippedAnchors: len(result.SkippedAnchors),
		Unassigned:     len(result.Unassigned),
		StatusCounts:   make(map[entities.OrderStatus]int),
		PhaseDurations: phases,
		BookedHours:    make(map[string]float64, len(posts)),
		HeapAlloc:      memory.ReadHeapStats().Alloc,
		Elapsed:        elapsed,
	}
	for _, order := range result.Orders {
		stats.StatusCounts[order.Status]++
	}
	for _, post := range posts {
		stats.BookedHours[post.ID] = post.BookedDuration().Hours()
	}
	return stats
}
