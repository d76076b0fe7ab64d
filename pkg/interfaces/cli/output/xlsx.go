package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/moplan/pkg/application/dto"
)

// Workbook sheet names
const (
	SheetGroups    = "Groups"
	SheetOrders    = "Orders"
	SheetDecisions = "Decisions"
)

var (
	groupColumns = []interface{}{
		"Group", "Anchor Product", "Window Start", "Window End", "Members", "Anchor Stock",
	}
	orderColumns = []interface{}{
		"Order", "Designation", "Product", "Type", "Level", "Quantity", "Need Date",
		"Group", "Status", "Start", "End", "Delay", "Residual Stock", "Failure Reason",
	}
	decisionColumns = []interface{}{
		"Order", "Group", "Step", "Operation", "Post", "Start", "End",
	}
)

// writeXLSX writes a workbook with one sheet each for groups, orders and
// scheduling decisions
func writeXLSX(w io.Writer, result *dto.PlanResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetGroups); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetGroups, err)
	}
	for _, sheet := range []string{SheetOrders, SheetDecisions} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	var groupRows [][]interface{}
	for _, g := range sortedGroups(result.Groups) {
		groupRows = append(groupRows, []interface{}{
			g.ID,
			string(g.AnchorProduct),
			g.WindowStart.Format(dateLayout),
			g.WindowEnd.Format(dateLayout),
			len(g.Members),
			g.NetStockFor(g.AnchorProduct).InexactFloat64(),
		})
	}

	var orderRows [][]interface{}
	for _, o := range result.Orders {
		var start, end string
		if o.IsScheduled() {
			start = o.ScheduledStart.Format(dateTimeLayout)
			end = o.ScheduledEnd.Format(dateTimeLayout)
		}
		orderRows = append(orderRows, []interface{}{
			o.ID,
			o.Designation,
			string(o.ProductID),
			o.ProductType.String(),
			o.BOMLevel,
			o.Quantity.InexactFloat64(),
			o.NeedDate.Format(dateLayout),
			o.GroupID,
			o.Status.String(),
			start,
			end,
			o.Delay(),
			o.ResidualStock.InexactFloat64(),
			o.FailureReason,
		})
	}

	var decisionRows [][]interface{}
	for _, d := range result.Decisions {
		decisionRows = append(decisionRows, []interface{}{
			d.OrderID,
			d.GroupID,
			d.Step,
			d.Operation,
			d.PostID,
			d.Start.Format(dateTimeLayout),
			d.End.Format(dateTimeLayout),
		})
	}

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{SheetGroups, groupColumns, groupRows},
		{SheetOrders, orderColumns, orderRows},
		{SheetDecisions, decisionColumns, decisionRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
