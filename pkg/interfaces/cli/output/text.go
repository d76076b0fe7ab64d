package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/entities"
)

var statusOrder = []entities.OrderStatus{
	entities.PlannedOnTime,
	entities.PlannedLate,
	entities.FailedPlanning,
	entities.FailedNoOperations,
	entities.Assigned,
	entities.Unassigned,
}

// statusColor returns the printer for a status label
func statusColor(s entities.OrderStatus) func(format string, a ...interface{}) string {
	switch {
	case s == entities.PlannedOnTime:
		return color.GreenString
	case s == entities.PlannedLate:
		return color.YellowString
	case s.IsFailed():
		return color.RedString
	default:
		return fmt.Sprintf
	}
}

// writeText writes a human-readable summary. Verbose output lists every
// order instead of only the failed ones.
func writeText(w io.Writer, result *dto.PlanResult, verbose bool) error {
	bold := color.New(color.Bold).SprintFunc()
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", bold("Planning Results Summary"))
	b.WriteString("========================\n\n")
	fmt.Fprintf(&b, "Run:        %s\n", result.RunID)
	fmt.Fprintf(&b, "Horizon:    %d weeks\n", result.Params.HorizonWeeks)
	fmt.Fprintf(&b, "Advance:    %d weeks\n", result.Params.AdvanceWeeks)
	fmt.Fprintf(&b, "Orders:     %d\n", len(result.Orders))
	fmt.Fprintf(&b, "Groups:     %d\n", len(result.Groups))
	fmt.Fprintf(&b, "Elapsed:    %v\n\n", result.Stats.Elapsed)

	counts := make(map[entities.OrderStatus]int)
	for _, o := range result.Orders {
		counts[o.Status]++
	}
	b.WriteString(bold("Orders by status:") + "\n")
	for _, s := range statusOrder {
		if counts[s] == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s %d\n", statusColor(s)("%-24s", s.String()), counts[s])
	}
	b.WriteString("\n")

	if len(result.Groups) > 0 {
		b.WriteString(bold("Groups:") + "\n")
		fmt.Fprintf(&b, "%-8s %-15s %-12s %-12s %-8s %-12s\n",
			"Group", "Anchor", "From", "To", "Orders", "Anchor Stock")
		fmt.Fprintf(&b, "%-8s %-15s %-12s %-12s %-8s %-12s\n",
			"--------", "---------------", "------------", "------------", "--------", "------------")
		for _, g := range sortedGroups(result.Groups) {
			fmt.Fprintf(&b, "%-8s %-15s %-12s %-12s %-8d %-12s\n",
				g.ID,
				g.AnchorProduct,
				g.WindowStart.Format(dateLayout),
				g.WindowEnd.Format(dateLayout),
				len(g.Members),
				g.NetStockFor(g.AnchorProduct).StringFixed(2))
		}
		b.WriteString("\n")
	}

	var listed []*entities.ManufacturingOrder
	for _, o := range result.Orders {
		if verbose || o.Status.IsFailed() {
			listed = append(listed, o)
		}
	}
	if len(listed) > 0 {
		title := "Failed orders:"
		if verbose {
			title = "Orders:"
		}
		b.WriteString(bold(title) + "\n")
		for _, o := range listed {
			fmt.Fprintf(&b, "  %-12s %-15s %-8s %s", o.ID, o.ProductID, o.GroupID, statusColor(o.Status)("%s", o.Status))
			if o.IsScheduled() {
				fmt.Fprintf(&b, " %s -> %s", o.ScheduledStart.Format(dateTimeLayout), o.ScheduledEnd.Format(dateTimeLayout))
			}
			if o.FailureReason != "" {
				fmt.Fprintf(&b, " (%s)", o.FailureReason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(result.SkippedAnchors) > 0 {
		fmt.Fprintf(&b, "Skipped anchors: %s\n\n", strings.Join(result.SkippedAnchors, ", "))
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "%s\n", color.YellowString("Warnings:"))
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warning)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
