package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/repositories"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
)

// ReasonNoOperations is the failure reason of orders without a routing
const ReasonNoOperations = "no operations"

// Scheduler places the operations of grouped orders onto posts. Groups are
// processed by window start and orders by descending level then need date;
// later orders see the bookings of earlier ones.
type Scheduler struct {
	posts    repositories.PostRepository
	routings repositories.RoutingRepository
	params   dto.Params
	logger   logging.Logger
	store    events.EventStore
}

// NewScheduler creates a scheduler. logger and store may be nil.
func NewScheduler(
	posts repositories.PostRepository,
	routings repositories.RoutingRepository,
	params dto.Params,
	logger logging.Logger,
	store events.EventStore,
) (*Scheduler, error) {
	if posts == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if routings == nil {
		return nil, fmt.Errorf("routing repository cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planning parameters: %w", err)
	}

	return &Scheduler{
		posts:    posts,
		routings: routings,
		params:   params,
		logger:   logging.OrNop(logger),
		store:    store,
	}, nil
}

type tentativeStep struct {
	post *calendar.Post
	op   entities.Operation
	key  calendar.BookingKey
	slot calendar.Slot
}

// Schedule plans every member order of the given groups. Inputs are not
// modified; the result carries updated copies of all orders in input order.
// Orders outside any group are returned unchanged.
func (s *Scheduler) Schedule(ctx context.Context, groups []*entities.Group, orders []*entities.ManufacturingOrder) (*dto.ScheduleResult, error) {
	work := make([]*entities.ManufacturingOrder, len(orders))
	byID := make(map[string]*entities.ManufacturingOrder, len(orders))
	for i, order := range orders {
		work[i] = order.Clone()
		byID[order.ID] = work[i]
	}

	sorted := append([]*entities.Group(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].WindowStart.Equal(sorted[j].WindowStart) {
			return sorted[i].WindowStart.Before(sorted[j].WindowStart)
		}
		return sorted[i].Number() < sorted[j].Number()
	})

	result := &dto.ScheduleResult{}
	for _, group := range sorted {
		members := make([]*entities.ManufacturingOrder, 0, len(group.Members))
		for _, id := range group.Members {
			order, ok := byID[id]
			if !ok {
				s.logger.Warnf("group %s references unknown order %s", group.ID, id)
				continue
			}
			members = append(members, order)
		}
		sortForScheduling(members)

		for _, order := range members {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scheduling interrupted at order %s: %w", order.ID, err)
			}
			decisions := s.scheduleOrder(group, order)
			result.Decisions = append(result.Decisions, decisions...)
		}
	}

	result.Orders = work
	return result, nil
}

func sortForScheduling(orders []*entities.ManufacturingOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.BOMLevel != b.BOMLevel {
			return a.BOMLevel > b.BOMLevel
		}
		if !a.NeedDate.Equal(b.NeedDate) {
			return a.NeedDate.Before(b.NeedDate)
		}
		return a.ID < b.ID
	})
}

// scheduleOrder books the whole routing of one order or nothing at all.
func (s *Scheduler) scheduleOrder(group *entities.Group, order *entities.ManufacturingOrder) []dto.ScheduleDecision {
	order.ScheduledStart, order.ScheduledEnd = time.Time{}, time.Time{}
	order.FailureReason = ""

	routing, err := s.routings.Routing(order.Product(), order.ProductType)
	if err != nil {
		s.fail(order, entities.FailedPlanning, fmt.Sprintf("routing lookup failed: %v", err))
		return nil
	}
	if len(routing) == 0 {
		s.fail(order, entities.FailedNoOperations, ReasonNoOperations)
		return nil
	}

	s.clearBookings(order, routing)

	chain := make([]tentativeStep, 0, len(routing))
	var prevEnd time.Time
	for step, op := range routing {
		key := calendar.BookingKey{OrderID: order.ID, Step: step}
		post, err := s.posts.GetPost(op.PostID)
		if err != nil {
			s.fail(order, entities.FailedPlanning, fmt.Sprintf("unknown post %s for operation %s", op.PostID, op.Name))
			return nil
		}

		var slot calendar.Slot
		if step == 0 {
			slot, err = s.firstSlot(post, op, group, order, key)
		} else {
			slot, err = post.FindSlot(prevEnd, op.Duration, key)
		}
		if err != nil {
			s.fail(order, entities.FailedPlanning, fmt.Sprintf("operation %s on post %s: %v", op.Name, op.PostID, err))
			return nil
		}

		chain = append(chain, tentativeStep{post: post, op: op, key: key, slot: slot})
		prevEnd = slot.End
	}

	start, end := chain[0].slot.Start, chain[len(chain)-1].slot.End
	status, ok := s.classify(order, start)
	if !ok {
		s.fail(order, entities.FailedPlanning, fmt.Sprintf("outside window: start %s", start.Format("2006-01-02")))
		return nil
	}

	if err := s.commit(chain); err != nil {
		s.fail(order, entities.FailedPlanning, err.Error())
		return nil
	}

	order.ScheduledStart = start
	order.ScheduledEnd = end
	order.Status = status

	decisions := make([]dto.ScheduleDecision, 0, len(chain))
	for _, t := range chain {
		decisions = append(decisions, dto.ScheduleDecision{
			OrderID:   order.ID,
			GroupID:   group.ID,
			Step:      t.key.Step,
			Operation: t.op.Name,
			PostID:    t.post.ID,
			Start:     t.slot.Start,
			End:       t.slot.End,
		})
		s.publish(events.NewOperationBookedEvent(order.ID, t.key.Step, t.op.Name, t.post.ID, t.slot.Start, t.slot.End))
	}

	s.logger.Debugw("order planned", map[string]any{
		"order":  order.ID,
		"group":  group.ID,
		"status": order.Status.String(),
		"start":  start.Format(time.RFC3339),
		"end":    end.Format(time.RFC3339),
		"steps":  len(chain),
	})
	s.publish(events.NewOrderPlannedEvent(order))
	return decisions
}

// firstSlot searches the first operation's slot in two phases: on or before
// the need date starting at most advance weeks early, then on the days after
// the need date up to advance weeks late.
func (s *Scheduler) firstSlot(post *calendar.Post, op entities.Operation, group *entities.Group, order *entities.ManufacturingOrder, key calendar.BookingKey) (calendar.Slot, error) {
	need := entities.Day(order.NeedDate)
	advance := s.params.AdvanceDays()

	from := need.AddDate(0, 0, -advance)
	if group.WindowStart.After(from) {
		from = group.WindowStart
	}
	slot, err := post.FindSlot(from, op.Duration, key)
	if err == nil && !entities.Day(slot.Start).After(need) {
		return slot, nil
	}

	lateFrom := need.AddDate(0, 0, 1)
	lateUntil := need.AddDate(0, 0, advance)
	slot, err = post.FindSlot(lateFrom, op.Duration, key)
	if err == nil {
		day := entities.Day(slot.Start)
		if !day.Before(lateFrom) && !day.After(lateUntil) {
			return slot, nil
		}
	}
	if err != nil && !errors.Is(err, calendar.ErrInfeasible) {
		return calendar.Slot{}, err
	}

	return calendar.Slot{}, fmt.Errorf("no slot within %d weeks of need date %s: %w",
		s.params.AdvanceWeeks, need.Format("2006-01-02"), calendar.ErrInfeasible)
}

// classify reports the status of an order starting at start, and false when
// the start falls outside the advance window.
func (s *Scheduler) classify(order *entities.ManufacturingOrder, start time.Time) (entities.OrderStatus, bool) {
	need := entities.Day(order.NeedDate)
	day := entities.Day(start)
	switch {
	case !day.After(need):
		return entities.PlannedOnTime, true
	case !day.After(need.AddDate(0, 0, s.params.AdvanceDays())):
		return entities.PlannedLate, true
	default:
		return entities.FailedPlanning, false
	}
}

func (s *Scheduler) commit(chain []tentativeStep) error {
	for i, t := range chain {
		if err := t.post.Book(t.slot.Start, t.slot.End, t.key); err != nil {
			for _, done := range chain[:i] {
				done.post.Unbook(done.key)
			}
			return fmt.Errorf("booking %s: %w", t.key, err)
		}
	}
	return nil
}

func (s *Scheduler) clearBookings(order *entities.ManufacturingOrder, routing []entities.Operation) {
	for step, op := range routing {
		post, err := s.posts.GetPost(op.PostID)
		if err != nil {
			continue
		}
		post.Unbook(calendar.BookingKey{OrderID: order.ID, Step: step})
	}
}

func (s *Scheduler) fail(order *entities.ManufacturingOrder, status entities.OrderStatus, reason string) {
	order.Status = status
	order.FailureReason = reason
	order.ScheduledStart, order.ScheduledEnd = time.Time{}, time.Time{}
	s.logger.Warnf("order %s (%s) not planned: %s", order.ID, order.Product(), reason)
	s.publish(events.NewOrderFailedEvent(order))
}

func (s *Scheduler) publish(event events.Event) {
	if err := events.Publish(s.store, event); err != nil {
		s.logger.Warnf("publishing %s: %v", event.Type(), err)
	}
}
