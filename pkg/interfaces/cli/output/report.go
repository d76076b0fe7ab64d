package output

import (
	"sort"
	"time"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/entities"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// Report is the serialisable view of a planning run used by the json and
// yaml formats. Quantities are rendered as decimal strings.
type Report struct {
	RunID          string                 `json:"run_id" yaml:"run_id"`
	StartedAt      time.Time              `json:"started_at" yaml:"started_at"`
	Params         dto.Params             `json:"params" yaml:"params"`
	Summary        Summary                `json:"summary" yaml:"summary"`
	Groups         []GroupReport          `json:"groups" yaml:"groups"`
	Orders         []OrderReport          `json:"orders" yaml:"orders"`
	Decisions      []dto.ScheduleDecision `json:"decisions" yaml:"decisions"`
	SkippedAnchors []string               `json:"skipped_anchors,omitempty" yaml:"skipped_anchors,omitempty"`
	Warnings       []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summary counts orders per status
type Summary struct {
	Orders     int            `json:"orders" yaml:"orders"`
	Groups     int            `json:"groups" yaml:"groups"`
	Unassigned int            `json:"unassigned" yaml:"unassigned"`
	ByStatus   map[string]int `json:"by_status" yaml:"by_status"`
	ElapsedMS  int64          `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// GroupReport describes one group and its stock balance
type GroupReport struct {
	ID            string            `json:"id" yaml:"id"`
	AnchorProduct string            `json:"anchor_product" yaml:"anchor_product"`
	WindowStart   string            `json:"window_start" yaml:"window_start"`
	WindowEnd     string            `json:"window_end" yaml:"window_end"`
	Members       []string          `json:"members" yaml:"members"`
	NetStock      map[string]string `json:"net_stock" yaml:"net_stock"`
	Consumption   map[string]string `json:"consumption,omitempty" yaml:"consumption,omitempty"`
}

// OrderReport is one order with its planning state
type OrderReport struct {
	ID             string `json:"id" yaml:"id"`
	Designation    string `json:"designation" yaml:"designation"`
	ProductID      string `json:"product_id" yaml:"product_id"`
	ProductType    string `json:"product_type" yaml:"product_type"`
	BOMLevel       int    `json:"bom_level" yaml:"bom_level"`
	Quantity       string `json:"quantity" yaml:"quantity"`
	NeedDate       string `json:"need_date" yaml:"need_date"`
	GroupID        string `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	Status         string `json:"status" yaml:"status"`
	ScheduledStart string `json:"scheduled_start,omitempty" yaml:"scheduled_start,omitempty"`
	ScheduledEnd   string `json:"scheduled_end,omitempty" yaml:"scheduled_end,omitempty"`
	Delay          int    `json:"delay" yaml:"delay"`
	ResidualStock  string `json:"residual_stock" yaml:"residual_stock"`
	FailureReason  string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
}

// NewReport builds the serialisable view of a result
func NewReport(result *dto.PlanResult) Report {
	r := Report{
		RunID:          result.RunID,
		StartedAt:      result.StartedAt,
		Params:         result.Params,
		Decisions:      result.Decisions,
		SkippedAnchors: result.SkippedAnchors,
		Warnings:       result.Warnings,
		Groups:         make([]GroupReport, 0, len(result.Groups)),
		Orders:         make([]OrderReport, 0, len(result.Orders)),
	}
	if r.Decisions == nil {
		r.Decisions = []dto.ScheduleDecision{}
	}

	r.Summary = Summary{
		Orders:     len(result.Orders),
		Groups:     len(result.Groups),
		Unassigned: len(result.UnassignedOrders()),
		ByStatus:   make(map[string]int),
		ElapsedMS:  result.Stats.Elapsed.Milliseconds(),
	}
	for _, o := range result.Orders {
		r.Summary.ByStatus[o.Status.String()]++
	}

	for _, g := range sortedGroups(result.Groups) {
		r.Groups = append(r.Groups, GroupReport{
			ID:            g.ID,
			AnchorProduct: string(g.AnchorProduct),
			WindowStart:   g.WindowStart.Format(dateLayout),
			WindowEnd:     g.WindowEnd.Format(dateLayout),
			Members:       g.Members,
			NetStock:      decimalStrings(g.NetStock),
			Consumption:   decimalStrings(g.Consumption),
		})
	}

	for _, o := range result.Orders {
		r.Orders = append(r.Orders, orderReport(o))
	}
	return r
}

func orderReport(o *entities.ManufacturingOrder) OrderReport {
	rep := OrderReport{
		ID:            o.ID,
		Designation:   o.Designation,
		ProductID:     string(o.ProductID),
		ProductType:   o.ProductType.String(),
		BOMLevel:      o.BOMLevel,
		Quantity:      o.Quantity.String(),
		NeedDate:      o.NeedDate.Format(dateLayout),
		GroupID:       o.GroupID,
		Status:        o.Status.String(),
		Delay:         o.Delay(),
		ResidualStock: o.ResidualStock.String(),
		FailureReason: o.FailureReason,
	}
	if o.IsScheduled() {
		rep.ScheduledStart = o.ScheduledStart.Format(dateTimeLayout)
		rep.ScheduledEnd = o.ScheduledEnd.Format(dateTimeLayout)
	}
	return rep
}

// sortedGroups returns the groups ordered by their numeric id
func sortedGroups(groups []*entities.Group) []*entities.Group {
	out := make([]*entities.Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Number() < out[j].Number()
	})
	return out
}

func decimalStrings[V interface{ String() string }](m map[entities.ProductID]V) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v.String()
	}
	return out
}
