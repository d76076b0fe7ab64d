package output

import (
	"fmt"
	"html"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/entities"
)

// GanttChart lays out the post schedule of a planning run
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// GanttBar is one booked operation on a post row
type GanttBar struct {
	PostID    string
	OrderID   string
	GroupID   string
	Operation string
	Status    entities.OrderStatus
	Start     time.Time
	End       time.Time
	X         int
	Width     int
	Color     string
}

// NewGanttChart sizes a chart for the decisions of a result
func NewGanttChart(result *dto.PlanResult) *GanttChart {
	if len(result.Decisions) == 0 {
		return &GanttChart{
			Width:        800,
			Height:       200,
			MarginLeft:   150,
			MarginTop:    50,
			MarginRight:  50,
			MarginBottom: 50,
			RowHeight:    25,
		}
	}

	startTime := result.Decisions[0].Start
	endTime := result.Decisions[0].End
	posts := make(map[string]bool)
	for _, d := range result.Decisions {
		if d.Start.Before(startTime) {
			startTime = d.Start
		}
		if d.End.After(endTime) {
			endTime = d.End
		}
		posts[d.PostID] = true
	}

	// Whole days on both sides keep the axis labels on midnight.
	startTime = entities.Day(startTime)
	endTime = entities.Day(endTime).AddDate(0, 0, 1)

	rowHeight := 30
	return &GanttChart{
		Width:        1200,
		Height:       len(posts)*rowHeight + 140,
		MarginLeft:   150,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 50,
		RowHeight:    rowHeight,
		StartTime:    startTime,
		EndTime:      endTime,
	}
}

// GenerateSVG renders one row per post with a bar per booked operation
func (gc *GanttChart) GenerateSVG(result *dto.PlanResult) string {
	if len(result.Decisions) == 0 {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height)
	svg.WriteString(`<defs><style>`)
	svg.WriteString(`.post-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.op-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.op-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style></defs>`)
	fmt.Fprintf(&svg, `<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height)
	fmt.Fprintf(&svg, `<text x="%d" y="30" class="title" text-anchor="middle">Post Schedule %s</text>`,
		gc.Width/2, html.EscapeString(result.RunID))

	rows := gc.organizeBars(gc.createBars(result))
	gc.drawTimeAxis(&svg, len(rows))
	gc.drawPostRows(&svg, rows)
	gc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (gc *GanttChart) createBars(result *dto.PlanResult) []GanttBar {
	status := make(map[string]entities.OrderStatus, len(result.Orders))
	for _, o := range result.Orders {
		status[o.ID] = o.Status
	}

	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)

	bars := make([]GanttBar, 0, len(result.Decisions))
	for _, d := range result.Decisions {
		x := gc.MarginLeft + int(float64(d.Start.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
		width := int(float64(d.End.Sub(d.Start)) / float64(total) * float64(chartWidth))
		if width < 2 {
			width = 2
		}
		bars = append(bars, GanttBar{
			PostID:    d.PostID,
			OrderID:   d.OrderID,
			GroupID:   d.GroupID,
			Operation: d.Operation,
			Status:    status[d.OrderID],
			Start:     d.Start,
			End:       d.End,
			X:         x,
			Width:     width,
			Color:     barColor(status[d.OrderID]),
		})
	}
	return bars
}

type postRow struct {
	postID string
	bars   []GanttBar
}

// organizeBars groups bars by post, rows sorted by post id and bars by start
func (gc *GanttChart) organizeBars(bars []GanttBar) []postRow {
	byPost := make(map[string][]GanttBar)
	for _, bar := range bars {
		byPost[bar.PostID] = append(byPost[bar.PostID], bar)
	}

	rows := make([]postRow, 0, len(byPost))
	for postID, postBars := range byPost {
		sort.Slice(postBars, func(i, j int) bool {
			return postBars[i].Start.Before(postBars[j].Start)
		})
		rows = append(rows, postRow{postID: postID, bars: postBars})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].postID < rows[j].postID
	})
	return rows
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder, numRows int) {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	gridBottom := gc.MarginTop + numRows*gc.RowHeight

	days := int(math.Ceil(total.Hours() / 24))
	interval, labelFormat := 24*time.Hour, "Jan 2"
	if days > 60 {
		interval = 7 * 24 * time.Hour
	}

	for t := gc.StartTime; t.Before(gc.EndTime); t = t.Add(interval) {
		x := gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`, x, gc.MarginTop, x, gridBottom)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
			x, gridBottom+15, t.Format(labelFormat))
	}
	fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		gc.MarginLeft, gridBottom, gc.Width-gc.MarginRight, gridBottom)
}

func (gc *GanttChart) drawPostRows(svg *strings.Builder, rows []postRow) {
	for i, row := range rows {
		y := gc.MarginTop + i*gc.RowHeight
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="post-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-15, y+gc.RowHeight/2+4, html.EscapeString(row.postID))
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			gc.MarginLeft, y+gc.RowHeight, gc.Width-gc.MarginRight, y+gc.RowHeight)
		for _, bar := range row.bars {
			gc.drawBar(svg, bar, y)
		}
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int) {
	barHeight := gc.RowHeight - 4
	barY := rowY + 2

	fmt.Fprintf(svg, `<g><rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="op-bar"/>`,
		bar.X, barY, bar.Width, barHeight, bar.Color)
	if bar.Width > 40 {
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="op-text" text-anchor="middle">%s</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, html.EscapeString(bar.OrderID))
	}
	fmt.Fprintf(svg, `<title>%s</title></g>`, html.EscapeString(fmt.Sprintf("%s %s (%s) %s, %s to %s",
		bar.OrderID, bar.Operation, bar.GroupID, bar.Status,
		bar.Start.Format(dateTimeLayout), bar.End.Format(dateTimeLayout))))
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	legendX := gc.Width - gc.MarginRight - 180
	legendY := 10

	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="170" height="40" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY)
	items := []struct {
		color string
		label string
	}{
		{barColor(entities.PlannedOnTime), "On time"},
		{barColor(entities.PlannedLate), "Late"},
	}
	for i, item := range items {
		itemY := legendY + 10 + i*14
		fmt.Fprintf(svg, `<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`, legendX+10, itemY, item.color)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="time-label">%s</text>`, legendX+30, itemY+8, item.label)
	}
}

func barColor(status entities.OrderStatus) string {
	switch status {
	case entities.PlannedOnTime:
		return "#4CAF50"
	case entities.PlannedLate:
		return "#FF9800"
	default:
		return "#9E9E9E"
	}
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No Scheduled Operations</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}

func writeSVG(w io.Writer, result *dto.PlanResult) error {
	_, err := io.WriteString(w, NewGanttChart(result).GenerateSVG(result))
	return err
}
