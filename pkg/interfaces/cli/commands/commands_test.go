package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/moplan/pkg/infrastructure/config"
	"github.com/vsinha/moplan/pkg/interfaces/cli/output"
)

const (
	ordersFile = "Part\tDescription\tOrder Code\tFG\tCAT US FS\tQty\tDate\n" +
		"PS1\tBase mix\tMO1\tFG1\t2\t100\t2024-01-16\n" +
		"PF1\tFinished\tMO2\tFG1\t0\t10\t2024-01-20\n"
	bomFile = "ParentProductID,ChildProductID,QuantityChildPerParent,ChildBOMLevel\n" +
		"PF1,PS1,2,2\n"
	postsFile = "PostID,PostName,DefaultCapacityHoursWeek\n" +
		"P1,Mixer,35\n"
	operationsFile = "ProductType,OperationName,PostID,StandardTimeHours,Sequence\n" +
		"PS,Mix,P1,1,10\n" +
		"PF,Fill,P1,1,10\n"
)

func writeInputs(t *testing.T, files map[string]string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string, len(files))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths[name] = path
	}
	return paths
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	paths := writeInputs(t, map[string]string{
		"orders.tsv":     ordersFile,
		"bom.csv":        bomFile,
		"posts.csv":      postsFile,
		"operations.csv": operationsFile,
	})
	cfg := config.Default()
	cfg.Inputs = config.InputsConfig{
		Orders:     paths["orders.tsv"],
		BOM:        paths["bom.csv"],
		Posts:      paths["posts.csv"],
		Operations: paths["operations.csv"],
	}
	return &cfg
}

func TestRunPlan_JSON(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Format = output.FormatJSON

	var buf bytes.Buffer
	require.NoError(t, runPlan(context.Background(), cfg, &buf, false))

	var report output.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, 2, report.Summary.Orders)
	assert.Equal(t, 1, report.Summary.Groups)
	require.Len(t, report.Groups, 1)
	assert.ElementsMatch(t, []string{"MO1", "MO2"}, report.Groups[0].Members)
	assert.Equal(t, 2, report.Summary.ByStatus["PLANNED"])
	assert.Len(t, report.Decisions, 2)
}

func TestRunPlan_FileOutputAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Output.Format = output.FormatTSV
	cfg.Output.Path = filepath.Join(dir, "grouped.tsv")
	cfg.Metrics.Textfile = filepath.Join(dir, "moplan.prom")

	var buf bytes.Buffer
	require.NoError(t, runPlan(context.Background(), cfg, &buf, false))
	assert.Empty(t, buf.String(), "file output leaves stdout untouched")

	tsv, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(tsv), strings.Join(output.TSVHeader, "\t")))
	assert.Contains(t, string(tsv), "# Group ID: GRP1")

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "moplan_runs_total 1")
	assert.Contains(t, string(prom), `moplan_orders_total{status="PLANNED"} 2`)
}

func TestRunPlan_Errors(t *testing.T) {
	t.Run("xlsx without output file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Output.Format = output.FormatXLSX
		err := runPlan(context.Background(), cfg, &bytes.Buffer{}, false)
		require.Error(t, err)
	})

	t.Run("missing orders file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Inputs.Orders = filepath.Join(t.TempDir(), "absent.tsv")
		err := runPlan(context.Background(), cfg, &bytes.Buffer{}, false)
		require.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := runPlan(ctx, cfg, &bytes.Buffer{}, false)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunValidate(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	t.Run("clean inputs", func(t *testing.T) {
		cfg := testConfig(t)
		var buf bytes.Buffer
		require.NoError(t, runValidate(cfg, &buf))
		assert.Contains(t, buf.String(), "Orders:          2")
		assert.Contains(t, buf.String(), "BOM products:    2")
		assert.NotContains(t, buf.String(), "Not in BOM")
		assert.Contains(t, buf.String(), "OK")
	})

	t.Run("findings", func(t *testing.T) {
		paths := writeInputs(t, map[string]string{
			"orders.tsv": ordersFile + "PF1\tAgain\tMO2\t\t0\t5\t2024-01-21\n" +
				"PF2\tBroken\tMO3\t\t0\tlots\t2024-01-21\n" +
				"PF7\tLoose\tMO4\t\t0\t5\t2024-01-22\n",
			"bom.csv": bomFile + "PS1,PF1,1,0\n",
		})
		cfg := config.Default()
		cfg.Inputs = config.InputsConfig{Orders: paths["orders.tsv"], BOM: paths["bom.csv"]}

		var buf bytes.Buffer
		err := runValidate(&cfg, &buf)
		require.ErrorIs(t, err, ErrValidationFailed)

		out := buf.String()
		assert.Contains(t, out, "row:")
		assert.Contains(t, out, "cycle:")
		assert.Contains(t, out, "duplicate order: MO2")
		assert.Contains(t, out, "Not in BOM:      [PF7]")
		assert.Contains(t, out, "finding(s)")
	})

	t.Run("strict mode aborts", func(t *testing.T) {
		paths := writeInputs(t, map[string]string{
			"orders.tsv": ordersFile + "PF2\tBroken\tMO3\t\t0\tlots\t2024-01-21\n",
		})
		cfg := config.Default()
		cfg.Inputs = config.InputsConfig{Orders: paths["orders.tsv"], Strict: true}

		err := runValidate(&cfg, &bytes.Buffer{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrValidationFailed)
	})
}

func TestRootCommand(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs([]string{"version"})
		defer rootCmd.SetArgs(nil)

		require.NoError(t, Execute())
		assert.True(t, strings.HasPrefix(buf.String(), "moplan dev"))
	})

	t.Run("plan with flags", func(t *testing.T) {
		cfg := testConfig(t)
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs([]string{
			"plan",
			"--no-color",
			"--orders", cfg.Inputs.Orders,
			"--bom", cfg.Inputs.BOM,
			"--posts", cfg.Inputs.Posts,
			"--operations", cfg.Inputs.Operations,
			"--format", "yaml",
			"--horizon-weeks", "2",
		})
		defer rootCmd.SetArgs(nil)
		defer func() { color.NoColor = false }()

		require.NoError(t, Execute())
		assert.Contains(t, buf.String(), "horizon_weeks: 2")
		assert.Contains(t, buf.String(), "run_id:")
	})

	t.Run("validate without orders", func(t *testing.T) {
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetErr(&bytes.Buffer{})
		rootCmd.SetArgs([]string{"validate"})
		defer rootCmd.SetArgs(nil)

		require.Error(t, Execute())
	})
}
