package grouping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/moplan/pkg/application/dto"
	testhelpers "github.com/vsinha/moplan/pkg/application/services/testing"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/services"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
)

func run(t *testing.T, orders []*entities.ManufacturingOrder, entries []entities.BOMEntry) *dto.GroupingResult {
	t.Helper()
	engine, err := NewEngine(services.NewBOMGraph(entries), nil, dto.DefaultParams(), nil, nil)
	require.NoError(t, err)
	result, err := engine.Run(orders)
	require.NoError(t, err)
	return result
}

func byID(result *dto.GroupingResult) map[string]*entities.ManufacturingOrder {
	out := make(map[string]*entities.ManufacturingOrder)
	for _, o := range result.Orders {
		out[o.ID] = o
	}
	return out
}

func TestEngine_ThreeLevelScenario(t *testing.T) {
	orders, entries := testhelpers.ThreeLevelScenario()

	result := run(t, orders, entries)

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, "GRP1", group.ID)
	assert.Equal(t, entities.ProductID("PS1"), group.AnchorProduct)
	assert.Equal(t, testhelpers.Date("2024-01-16"), group.WindowStart)
	assert.Equal(t, testhelpers.Date("2024-02-12"), group.WindowEnd)
	assert.Equal(t, []string{"MO-BASE", "MO-MID", "MO-TOP"}, group.Members)

	assert.True(t, group.NetStock["PS1"].IsZero())
	orders2 := byID(result)
	assert.True(t, orders2["MO-BASE"].ResidualStock.IsZero())
	assert.True(t, orders2["MO-MID"].ResidualStock.IsZero())
	assert.True(t, orders2["MO-TOP"].ResidualStock.Equal(decimal.NewFromInt(100)))

	for _, o := range result.Orders {
		assert.Equal(t, "GRP1", o.GroupID)
		assert.Equal(t, entities.Assigned, o.Status)
	}
	assert.Empty(t, result.Unassigned)
	assert.Empty(t, result.SkippedAnchors)
}

func TestEngine_RequirementsSummary(t *testing.T) {
	orders, entries := testhelpers.ThreeLevelScenario()

	result := run(t, orders, entries)

	req := result.Groups[0].Requirements
	// MO-MID needs 50 x 4 PS1; MO-TOP needs 100 x 2 SF1 and 100 x 2 x 4 PS1
	assert.True(t, req["SF1"].Equal(decimal.NewFromInt(200)), "SF1: %s", req["SF1"])
	assert.True(t, req["PS1"].Equal(decimal.NewFromInt(1000)), "PS1: %s", req["PS1"])
}

func TestEngine_TwoIndependentFamilies(t *testing.T) {
	orders, entries := testhelpers.TwoFamiliesScenario()

	result := run(t, orders, entries)

	require.Len(t, result.Groups, 2)
	assert.Equal(t, []string{"A-BASE", "A-TOP"}, result.Groups[0].Members)
	assert.Equal(t, []string{"B-BASE", "B-TOP"}, result.Groups[1].Members)

	seen := make(map[string]string)
	for _, g := range result.Groups {
		for _, id := range g.Members {
			prev, dup := seen[id]
			assert.False(t, dup, "order %s in both %s and %s", id, prev, g.ID)
			seen[id] = g.ID
		}
	}
}

func TestEngine_IsolatedAnchorIsSkipped(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("MO-ORPHAN", "PS5", 2, "2024-01-16", 10),
		testhelpers.MustOrder("MO-1", "PS1", 1, "2024-01-16", 10),
		testhelpers.MustOrder("MO-2", "SF1", 0, "2024-01-17", 1),
	}
	entries := []entities.BOMEntry{testhelpers.MustBOMEntry("SF1", "PS1", 2, 1)}

	result := run(t, orders, entries)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"MO-ORPHAN"}, result.SkippedAnchors)
	assert.Equal(t, []string{"MO-ORPHAN"}, result.Unassigned)
	assert.Equal(t, entities.Unassigned, byID(result)["MO-ORPHAN"].Status)
}

func TestEngine_AnchorFilteredOutIsSkipped(t *testing.T) {
	// PS1 only relates to SF1, which has no order; SF2 and PF1 relate to each other.
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("A", "PS1", 2, "2024-01-16", 10),
		testhelpers.MustOrder("S", "SF2", 1, "2024-01-16", 5),
		testhelpers.MustOrder("F", "PF1", 0, "2024-01-16", 1),
	}
	entries := []entities.BOMEntry{
		testhelpers.MustBOMEntry("SF1", "PS1", 2, 2),
		testhelpers.MustBOMEntry("PF1", "SF1", 1, 1),
		testhelpers.MustBOMEntry("PF1", "SF2", 1, 1),
	}

	result := run(t, orders, entries)

	assert.Equal(t, []string{"A"}, result.SkippedAnchors)
	assert.Equal(t, []string{"A"}, result.Unassigned)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "GRP1", result.Groups[0].ID)
	assert.Equal(t, []string{"S", "F"}, result.Groups[0].Members)
}

func TestEngine_SkippedAnchorJoinsLaterGroup(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("X", "PS1", 0, "2024-01-10", 100),
		testhelpers.MustOrder("Y", "SF1", 0, "2024-01-05", 10),
	}
	entries := []entities.BOMEntry{
		testhelpers.MustBOMEntry("PF1", "SF1", 1, 1),
		testhelpers.MustBOMEntry("SF1", "PS1", 4, 2),
	}

	result := run(t, orders, entries)

	// X (level 2) opens [01-10, 02-06] where Y is out of window, so it is skipped.
	// Y (level 1) then opens [01-05, 02-01], which contains X.
	assert.Equal(t, []string{"X"}, result.SkippedAnchors)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"Y", "X"}, result.Groups[0].Members)
	assert.Empty(t, result.Unassigned)
}

func TestEngine_WindowIsInclusiveByDay(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("ANCHOR", "PS1", 1, "2024-01-16", 10),
		testhelpers.MustOrder("LAST-DAY", "SF1", 0, "2024-02-12", 1),
		testhelpers.MustOrder("TOO-LATE", "SF1", 0, "2024-02-13", 1),
	}
	entries := []entities.BOMEntry{testhelpers.MustBOMEntry("SF1", "PS1", 2, 1)}

	result := run(t, orders, entries)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"ANCHOR", "LAST-DAY"}, result.Groups[0].Members)
	assert.Equal(t, []string{"TOO-LATE"}, result.Unassigned)
}

func TestEngine_MemberOrdering(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("F2", "PF1", 0, "2024-01-18", 1),
		testhelpers.MustOrder("F1", "PF1", 0, "2024-01-18", 1),
		testhelpers.MustOrder("S-LATE", "SF1", 1, "2024-01-20", 1),
		testhelpers.MustOrder("S-EARLY", "SF1", 1, "2024-01-17", 1),
		testhelpers.MustOrder("B2", "PS1", 2, "2024-01-17", 1),
		testhelpers.MustOrder("B1", "PS1", 2, "2024-01-16", 1),
		testhelpers.MustOrder("G1", "PF0", 0, "2024-01-18", 1),
	}
	entries := []entities.BOMEntry{
		testhelpers.MustBOMEntry("SF1", "PS1", 1, 2),
		testhelpers.MustBOMEntry("PF1", "SF1", 1, 1),
		testhelpers.MustBOMEntry("PF0", "SF1", 1, 1),
	}

	result := run(t, orders, entries)

	require.Len(t, result.Groups, 1)
	assert.Equal(t,
		[]string{"B1", "B2", "S-EARLY", "S-LATE", "G1", "F1", "F2"},
		result.Groups[0].Members)
}

func TestEngine_DoesNotMutateInputs(t *testing.T) {
	orders, entries := testhelpers.ThreeLevelScenario()

	run(t, orders, entries)

	for _, o := range orders {
		assert.Empty(t, o.GroupID)
		assert.Equal(t, entities.Unassigned, o.Status)
		assert.True(t, o.ResidualStock.IsZero())
	}
	assert.Equal(t, 0, orders[2].BOMLevel)
}

func TestEngine_IsDeterministic(t *testing.T) {
	orders, entries := testhelpers.TwoFamiliesScenario()
	more, moreEntries := testhelpers.ThreeLevelScenario()
	for _, o := range more {
		o.ID = "T-" + o.ID
		o.ProductID = "X" + o.ProductID
	}
	for i := range moreEntries {
		moreEntries[i].ParentID = "X" + moreEntries[i].ParentID
		moreEntries[i].ChildID = "X" + moreEntries[i].ChildID
	}
	orders = append(orders, more...)
	entries = append(entries, moreEntries...)

	first := run(t, orders, entries)
	second := run(t, orders, entries)

	require.Equal(t, len(first.Groups), len(second.Groups))
	for i := range first.Groups {
		assert.Equal(t, first.Groups[i].Members, second.Groups[i].Members)
		assert.Equal(t, first.Groups[i].WindowStart, second.Groups[i].WindowStart)
	}
	for i := range first.Orders {
		assert.True(t, first.Orders[i].ResidualStock.Equal(second.Orders[i].ResidualStock))
	}
}

func TestEngine_FamilyCompleteness(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("B1", "PS1", 2, "2024-01-16", 100),
		testhelpers.MustOrder("S1", "SF1", 1, "2024-01-18", 10),
		testhelpers.MustOrder("S2", "SF2", 1, "2024-01-19", 10),
		testhelpers.MustOrder("F1", "PF1", 0, "2024-01-22", 5),
		testhelpers.MustOrder("B-LATE", "PS1", 2, "2024-04-01", 100),
	}
	entries := []entities.BOMEntry{
		testhelpers.MustBOMEntry("SF1", "PS1", 2, 2),
		testhelpers.MustBOMEntry("SF2", "PS1", 3, 2),
		testhelpers.MustBOMEntry("PF1", "SF1", 1, 1),
	}
	graph := services.NewBOMGraph(entries)

	result := run(t, orders, entries)

	for _, g := range result.Groups {
		for _, o := range result.Orders {
			if o.GroupID != "" || !graph.Family(g.AnchorProduct).Has(o.Product()) || !g.InWindow(o.NeedDate) {
				continue
			}
			for _, id := range g.Members {
				member := byID(result)[id]
				assert.False(t, graph.Related(o.Product(), member.Product()),
					"order %s is related to %s in %s but left out", o.ID, id, g.ID)
			}
		}
	}
	assert.Equal(t, []string{"B-LATE"}, result.Unassigned)
}

func TestEngine_CyclicBOMDoesNotAbort(t *testing.T) {
	orders := []*entities.ManufacturingOrder{
		testhelpers.MustOrder("MO-A", "SF1", 1, "2024-01-16", 10),
		testhelpers.MustOrder("MO-B", "SF2", 1, "2024-01-16", 10),
	}
	entries := []entities.BOMEntry{
		testhelpers.MustBOMEntry("SF1", "SF2", 1, 1),
		testhelpers.MustBOMEntry("SF2", "SF1", 1, 1),
		testhelpers.MustBOMEntry("SF2", "PS1", 1, 2),
	}

	result := run(t, orders, entries)

	require.Len(t, result.Groups, 1)
	assert.Len(t, result.Groups[0].Members, 2)
	assert.Empty(t, result.Groups[0].Requirements)
}

func TestEngine_PublishesEvents(t *testing.T) {
	orders, entries := testhelpers.ThreeLevelScenario()
	orders = append(orders, testhelpers.MustOrder("MO-ORPHAN", "PS9", 3, "2024-01-16", 1))
	store := events.NewInMemoryEventStore()

	engine, err := NewEngine(services.NewBOMGraph(entries), nil, dto.DefaultParams(), nil, store)
	require.NoError(t, err)
	_, err = engine.Run(orders)
	require.NoError(t, err)

	counts := store.CountByType()
	assert.Equal(t, 1, counts[events.GroupCreatedEvent])
	assert.Equal(t, 1, counts[events.AnchorSkippedEvent])
}

func TestNewEngine_RejectsInvalidParams(t *testing.T) {
	_, err := NewEngine(services.NewBOMGraph(nil), nil, dto.Params{HorizonWeeks: 0, AdvanceWeeks: 3}, nil, nil)
	assert.Error(t, err)

	_, err = NewEngine(nil, nil, dto.DefaultParams(), nil, nil)
	assert.Error(t, err)
}
