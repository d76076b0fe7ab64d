package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/entities"
)

// TSVHeader is the column layout of the grouped-needs file
var TSVHeader = []string{
	"Part", "Description", "Order Code", "FG", "CAT", "US", "FS", "Qty",
	"Need Date", "GRP_FLG", "Start Date", "Delay", "Stock_Produit",
}

const orderCodeWidth = 10

// writeTSV writes the grouped-needs layout: a header row, one commented block
// per group followed by its orders, then the orders that joined no group.
func writeTSV(w io.Writer, result *dto.PlanResult) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(TSVHeader); err != nil {
		return fmt.Errorf("failed to write TSV header: %w", err)
	}

	for _, g := range sortedGroups(result.Groups) {
		orders := result.OrdersByGroup(g)
		cw.Flush()
		if err := writeGroupBlock(w, g, orders); err != nil {
			return err
		}

		sort.SliceStable(orders, func(i, j int) bool {
			if orders[i].BOMLevel != orders[j].BOMLevel {
				return orders[i].BOMLevel > orders[j].BOMLevel
			}
			return orders[i].NeedDate.Before(orders[j].NeedDate)
		})
		for _, o := range orders {
			if err := cw.Write(tsvRow(o, o.ResidualStock.String())); err != nil {
				return fmt.Errorf("failed to write order %s: %w", o.ID, err)
			}
		}
	}

	cw.Flush()
	if _, err := io.WriteString(w, "\n# Unassigned Orders:\n"); err != nil {
		return err
	}
	unassigned := result.UnassignedOrders()
	sort.SliceStable(unassigned, func(i, j int) bool {
		return unassigned[i].ID < unassigned[j].ID
	})
	for _, o := range unassigned {
		if err := cw.Write(tsvRow(o, o.ResidualStock.StringFixed(2))); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeGroupBlock writes the commented group header. The anchor stock is the
// sum of the residuals left on the anchor product's orders.
func writeGroupBlock(w io.Writer, g *entities.Group, members []*entities.ManufacturingOrder) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n# Group ID: %s\n", g.ID)
	fmt.Fprintf(&b, "#   Anchor Product: %s\n", g.AnchorProduct)
	fmt.Fprintf(&b, "#   Window: %s to %s\n", g.WindowStart.Format(dateLayout), g.WindowEnd.Format(dateLayout))
	if _, ok := g.NetStock[g.AnchorProduct]; ok {
		stock := decimal.Zero
		for _, o := range members {
			if o.Product() == g.AnchorProduct.Normalized() {
				stock = stock.Add(o.ResidualStock)
			}
		}
		fmt.Fprintf(&b, "#   Anchor Stock: %s\n", stock.StringFixed(2))
	} else {
		b.WriteString("#   Anchor Stock: not computed\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func tsvRow(o *entities.ManufacturingOrder, stock string) []string {
	qty := o.SourceQty
	if qty == "" {
		qty = o.Quantity.Truncate(0).String()
	}

	var start, delay string
	if o.IsScheduled() {
		start = o.ScheduledStart.Format(dateLayout)
		delay = strconv.Itoa(o.Delay())
	}

	return []string{
		string(o.ProductID),
		shortDescription(o.Designation),
		orderCode(o.ID),
		o.FG,
		o.Cat,
		o.US,
		o.FS,
		qty,
		o.NeedDate.Format(dateLayout),
		strings.TrimPrefix(o.GroupID, entities.GroupIDPrefix),
		start,
		delay,
		stock,
	}
}

// shortDescription keeps the first two words of a designation
func shortDescription(designation string) string {
	words := strings.Fields(designation)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

func orderCode(id string) string {
	if len(id) <= orderCodeWidth {
		return id
	}
	return id[:orderCodeWidth]
}
