package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vsinha/moplan/pkg/application/services/orchestration"
	"github.com/vsinha/moplan/pkg/infrastructure/config"
	"github.com/vsinha/moplan/pkg/infrastructure/events"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
	"github.com/vsinha/moplan/pkg/infrastructure/metrics"
	csvrepo "github.com/vsinha/moplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/moplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/moplan/pkg/interfaces/cli/output"
)

var (
	planInputs  inputFlags
	planOptions struct {
		horizonWeeks int
		advanceWeeks int
		format       string
		output       string
		metricsFile  string
		verbose      bool
	}
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Group and schedule manufacturing orders",
	RunE:  runPlanCommand,
}

func init() {
	planInputs.register(planCmd)
	fs := planCmd.Flags()
	fs.IntVar(&planOptions.horizonWeeks, "horizon-weeks", 0, "grouping window width in weeks")
	fs.IntVar(&planOptions.advanceWeeks, "advance-weeks", 0, "how many weeks an order may start before or after its need date")
	fs.StringVar(&planOptions.format, "format", "", "output format: "+strings.Join(config.OutputFormats, ", "))
	fs.StringVarP(&planOptions.output, "output", "o", "", "output file (default stdout)")
	fs.StringVar(&planOptions.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.BoolVarP(&planOptions.verbose, "verbose", "v", false, "list every order in text output")
	rootCmd.AddCommand(planCmd)
}

func runPlanCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, &planInputs, func(cfg *config.Config) {
		fs := cmd.Flags()
		if fs.Changed("horizon-weeks") {
			cfg.Planning.HorizonWeeks = planOptions.horizonWeeks
		}
		if fs.Changed("advance-weeks") {
			cfg.Planning.AdvanceWeeks = planOptions.advanceWeeks
		}
		if fs.Changed("format") {
			cfg.Output.Format = planOptions.format
		}
		if fs.Changed("output") {
			cfg.Output.Path = planOptions.output
		}
		if fs.Changed("metrics-file") {
			cfg.Metrics.Textfile = planOptions.metricsFile
		}
	})
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr); err != nil {
		return err
	}
	return runPlan(ctx, cfg, cmd.OutOrStdout(), planOptions.verbose)
}

// runPlan loads the configured inputs, runs the planner and writes the result
func runPlan(ctx context.Context, cfg *config.Config, stdout io.Writer, verbose bool) error {
	if strings.EqualFold(cfg.Output.Format, output.FormatXLSX) && cfg.Output.Path == "" {
		return fmt.Errorf("the %s format needs an output file", output.FormatXLSX)
	}
	logger := logging.New("plan")

	ds, rowErrors, err := loadDataSet(cfg, logger)
	if err != nil {
		return err
	}

	orderRepo := memory.NewOrderRepository()
	if err := orderRepo.LoadOrders(ds.Orders); err != nil {
		return fmt.Errorf("failed to load orders into repository: %w", err)
	}
	bomRepo := memory.NewBOMRepository(len(ds.BOM))
	if err := bomRepo.LoadBOMEntries(ds.BOM); err != nil {
		return fmt.Errorf("failed to load BOM entries into repository: %w", err)
	}
	postRepo := memory.NewPostRepository()
	if err := postRepo.LoadPosts(ds.Posts); err != nil {
		return fmt.Errorf("failed to load posts into repository: %w", err)
	}
	routingRepo := memory.NewRoutingRepository()
	if err := routingRepo.LoadOperations(ds.Operations); err != nil {
		return fmt.Errorf("failed to load operations into repository: %w", err)
	}

	registry := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(registry)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	store := events.NewInMemoryEventStore()
	failures := events.HandlerFor([]string{events.OrderFailedEvent}, func(e events.Event) error {
		if p, ok := events.Payload[events.OrderFailed](e); ok {
			logger.Debugw("order failed", map[string]any{"order": p.OrderID, "group": p.GroupID, "reason": p.Reason})
		}
		return nil
	})
	if err := store.Subscribe([]string{events.OrderFailedEvent}, failures); err != nil {
		return err
	}

	orchestrator := orchestration.NewPlanningOrchestrator(
		orderRepo,
		bomRepo,
		postRepo,
		routingRepo,
		cfg.Planning.Params(),
		logging.New("orchestrator"),
		store,
		sink,
	)
	result, err := orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	for _, rowErr := range rowErrors {
		result.Warnings = append(result.Warnings, "skipped "+rowErr.Error())
	}

	if cfg.Output.Path == "" {
		err = output.Write(stdout, result, cfg.Output.Format, verbose)
	} else {
		err = output.Generate(result, output.Config{
			Format:  cfg.Output.Format,
			Path:    cfg.Output.Path,
			Verbose: verbose,
		})
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if cfg.Output.Path != "" {
		logger.Infof("results written to %s", cfg.Output.Path)
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, registry); err != nil {
			return err
		}
	}
	return nil
}

// loadDataSet reads every configured input file and returns the rows that
// were skipped in lenient mode
func loadDataSet(cfg *config.Config, logger logging.Logger) (*csvrepo.DataSet, []*csvrepo.RowError, error) {
	workingDay, err := cfg.Calendar.WorkingDay()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid calendar: %w", err)
	}
	loader := csvrepo.NewLoader(csvrepo.Options{
		Strict:        cfg.Inputs.Strict,
		WorkingDay:    workingDay,
		MaxSearchDays: cfg.Calendar.MaxSearchDays,
	}, logger)

	ds, err := loader.LoadDataSet(cfg.Inputs)
	if err != nil {
		return nil, nil, err
	}
	return ds, loader.RowErrors(), nil
}
