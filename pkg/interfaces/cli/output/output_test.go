package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/moplan/pkg/application/dto"
	testhelpers "github.com/vsinha/moplan/pkg/application/services/testing"
	"github.com/vsinha/moplan/pkg/domain/entities"
)

func mustGroup(t *testing.T, number int, anchor, from, to string, members ...string) *entities.Group {
	t.Helper()
	g, err := entities.NewGroup(number, entities.ProductID(anchor), testhelpers.Date(from), testhelpers.Date(to))
	require.NoError(t, err)
	for _, m := range members {
		g.AddMember(m)
	}
	return g
}

func sampleResult(t *testing.T) *dto.PlanResult {
	t.Helper()

	mo1 := testhelpers.MustOrder("MO1", "PS1", 2, "2025-01-15", 100)
	mo1.Designation = "Flour base batch A"
	mo1.SourceQty = "100,0"
	mo1.FG = "F1"
	mo1.Cat = "2"
	mo1.GroupID = "GRP1"
	mo1.Status = entities.PlannedLate
	mo1.ScheduledStart = testhelpers.At("2025-01-16 08:00")
	mo1.ScheduledEnd = testhelpers.At("2025-01-16 10:00")
	mo1.ResidualStock = decimal.NewFromInt(40)

	mo2 := testhelpers.MustOrder("MO2", "PF1", 0, "2025-01-20", 5)
	mo2.GroupID = "GRP1"
	mo2.Status = entities.PlannedOnTime
	mo2.ScheduledStart = testhelpers.At("2025-01-14 08:00")
	mo2.ScheduledEnd = testhelpers.At("2025-01-14 09:00")

	mo3 := testhelpers.MustOrder("MO3", "PF9", 0, "2025-02-10", 7)

	mo4 := testhelpers.MustOrder("MO_LONG_IDENTIFIER_12", "PS2", 2, "2025-01-22", 3)
	mo4.GroupID = "GRP2"
	mo4.Status = entities.FailedPlanning
	mo4.FailureReason = "post P9 not found"

	g1 := mustGroup(t, 1, "PS1", "2025-01-15", "2025-02-11", "MO1", "MO2")
	g1.NetStock["PS1"] = decimal.NewFromInt(40)
	g2 := mustGroup(t, 2, "PS2", "2025-01-22", "2025-02-18", "MO_LONG_IDENTIFIER_12")

	return &dto.PlanResult{
		RunID:     "run-1",
		StartedAt: testhelpers.At("2025-01-10 07:00"),
		Params:    dto.DefaultParams(),
		Groups:    []*entities.Group{g2, g1},
		Orders:    []*entities.ManufacturingOrder{mo1, mo2, mo3, mo4},
		Decisions: []dto.ScheduleDecision{{
			OrderID:   "MO1",
			GroupID:   "GRP1",
			Step:      1,
			Operation: "Mix",
			PostID:    "P1",
			Start:     testhelpers.At("2025-01-16 08:00"),
			End:       testhelpers.At("2025-01-16 10:00"),
		}},
		SkippedAnchors: []string{"MO9"},
		Unassigned:     []string{"MO3"},
		Warnings:       []string{"BOM cycle involving PS7"},
		Stats:          dto.RunStats{Elapsed: 12 * time.Millisecond},
	}
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), FormatTSV, false))
	out := buf.String()

	lines := strings.Split(out, "\n")
	assert.Equal(t, strings.Join(TSVHeader, "\t"), lines[0])

	grp1 := strings.Index(out, "# Group ID: GRP1")
	grp2 := strings.Index(out, "# Group ID: GRP2")
	unassigned := strings.Index(out, "# Unassigned Orders:")
	require.True(t, grp1 > 0 && grp2 > 0 && unassigned > 0)
	assert.Less(t, grp1, grp2, "groups are written in numeric order")
	assert.Less(t, grp2, unassigned)

	assert.Contains(t, out, "#   Anchor Product: PS1\n#   Window: 2025-01-15 to 2025-02-11\n#   Anchor Stock: 40.00\n")
	assert.Contains(t, out, "#   Anchor Stock: not computed\n")

	mo1 := "PS1\tFlour base\tMO1\tF1\t2\t1\t1\t100,0\t2025-01-15\t1\t2025-01-16\t1\t40"
	mo2 := "PF1\tOrder MO2\tMO2\t\t\t1\t1\t5\t2025-01-20\t1\t2025-01-14\t0\t0"
	assert.Contains(t, lines, mo1)
	assert.Contains(t, lines, mo2)
	assert.Less(t, strings.Index(out, mo1), strings.Index(out, mo2), "higher levels come first")

	assert.Contains(t, lines, "PS2\tOrder MO_LONG_IDENTIFIER_12\tMO_LONG_ID\t\t\t1\t1\t3\t2025-01-22\t2\t\t\t0")
	assert.Equal(t, "PF9\tOrder MO3\tMO3\t\t\t1\t1\t7\t2025-02-10\t\t\t\t0.00", lines[len(lines)-2])
}

func TestWriteTSV_AnchorStockIsResidualSum(t *testing.T) {
	result := sampleResult(t)
	for _, g := range result.Groups {
		if g.ID == "GRP1" {
			g.NetStock["PS1"] = decimal.NewFromInt(-25)
		}
	}
	for _, o := range result.Orders {
		if o.ID == "MO1" {
			o.ResidualStock = decimal.Zero
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, result, FormatTSV, false))
	assert.Contains(t, buf.String(), "#   Window: 2025-01-15 to 2025-02-11\n#   Anchor Stock: 0.00\n")
	assert.NotContains(t, buf.String(), "-25")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), FormatJSON, false))

	var report Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 4, report.Summary.Orders)
	assert.Equal(t, 1, report.Summary.Unassigned)
	assert.Equal(t, 1, report.Summary.ByStatus["PLANNED_LATE"])
	assert.Equal(t, 1, report.Summary.ByStatus["FAILED_PLANNING"])
	assert.Equal(t, int64(12), report.Summary.ElapsedMS)

	require.Len(t, report.Groups, 2)
	assert.Equal(t, "GRP1", report.Groups[0].ID)
	assert.Equal(t, "40", report.Groups[0].NetStock["PS1"])
	assert.Equal(t, []string{"MO1", "MO2"}, report.Groups[0].Members)

	require.Len(t, report.Orders, 4)
	assert.Equal(t, "2025-01-16 08:00", report.Orders[0].ScheduledStart)
	assert.Equal(t, 1, report.Orders[0].Delay)
	assert.Empty(t, report.Orders[2].ScheduledStart)
	assert.Equal(t, "post P9 not found", report.Orders[3].FailureReason)

	require.Len(t, report.Decisions, 1)
	assert.Equal(t, "Mix", report.Decisions[0].Operation)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), FormatYAML, false))

	var report Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, dto.DefaultHorizonWeeks, report.Params.HorizonWeeks)
	assert.Equal(t, []string{"MO9"}, report.SkippedAnchors)
	require.Len(t, report.Decisions, 1)
	assert.True(t, report.Decisions[0].End.Equal(testhelpers.At("2025-01-16 10:00")))
}

func TestWriteText(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), FormatText, false))
	out := buf.String()

	assert.Contains(t, out, "Planning Results Summary")
	assert.Contains(t, out, "PLANNED_LATE")
	assert.Contains(t, out, "GRP1")
	assert.Contains(t, out, "post P9 not found")
	assert.Contains(t, out, "Skipped anchors: MO9")
	assert.Contains(t, out, "BOM cycle involving PS7")
	assert.NotContains(t, out, "MO3 ", "only failed orders are listed")

	buf.Reset()
	require.NoError(t, Write(&buf, sampleResult(t), FormatText, true))
	assert.Contains(t, buf.String(), "MO3 ")
	assert.Contains(t, buf.String(), "2025-01-16 08:00 -> 2025-01-16 10:00")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), FormatXLSX, false))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetGroups, SheetOrders, SheetDecisions}, f.GetSheetList())

	groups, err := f.GetRows(SheetGroups)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Group", groups[0][0])
	assert.Equal(t, "GRP1", groups[1][0])
	assert.Equal(t, "40", groups[1][5])

	orders, err := f.GetRows(SheetOrders)
	require.NoError(t, err)
	require.Len(t, orders, 5)
	assert.Equal(t, "MO1", orders[1][0])
	assert.Equal(t, "PLANNED_LATE", orders[1][8])

	decisions, err := f.GetRows(SheetDecisions)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, []string{"MO1", "GRP1", "1", "Mix", "P1", "2025-01-16 08:00", "2025-01-16 10:00"}, decisions[1])
}

func TestWriteUnsupportedFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, sampleResult(t), "pdf", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestGenerate(t *testing.T) {
	t.Run("writes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "plan.json")
		require.NoError(t, Generate(sampleResult(t), Config{Format: "JSON", Path: path}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var report Report
		require.NoError(t, json.Unmarshal(data, &report))
		assert.Equal(t, "run-1", report.RunID)
	})

	t.Run("xlsx needs a path", func(t *testing.T) {
		err := Generate(sampleResult(t), Config{Format: FormatXLSX})
		require.Error(t, err)
	})
}

func TestShortDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Flour", "Flour"},
		{"Flour base", "Flour base"},
		{"  BATENS 40x40 long  ", "BATENS 40x40"},
	}
	for _, tc := range tests {
		if got := shortDescription(tc.in); got != tc.want {
			t.Errorf("shortDescription(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), FormatSVG, false))
	svg := buf.String()

	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Contains(t, svg, ">P1</text>")
	assert.Contains(t, svg, `fill="#FF9800"`, "late orders are drawn orange")
	assert.Contains(t, svg, "MO1 Mix (GRP1) PLANNED_LATE, 2025-01-16 08:00 to 2025-01-16 10:00")

	empty := sampleResult(t)
	empty.Decisions = nil
	buf.Reset()
	require.NoError(t, Write(&buf, empty, FormatSVG, false))
	assert.Contains(t, buf.String(), "No Scheduled Operations")
}
