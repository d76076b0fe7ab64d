package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vsinha/moplan/pkg/domain/services"
	"github.com/vsinha/moplan/pkg/infrastructure/config"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
)

// ErrValidationFailed is returned when the inputs have findings
var ErrValidationFailed = errors.New("input validation failed")

var validateInputs inputFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check input files for malformed rows, BOM cycles and duplicates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, &validateInputs, nil)
		if err != nil {
			return err
		}
		if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr); err != nil {
			return err
		}
		return runValidate(cfg, cmd.OutOrStdout())
	},
}

func init() {
	validateInputs.register(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

// runValidate loads the inputs in lenient mode unless strict is configured
// and reports every finding. It returns ErrValidationFailed when any finding
// was reported.
func runValidate(cfg *config.Config, w io.Writer) error {
	ds, rowErrors, err := loadDataSet(cfg, logging.New("validate"))
	if err != nil {
		return err
	}

	validator := services.NewBOMValidator()
	bomResult := validator.ValidateBOM(ds.BOM)
	orderResult := validator.ValidateOrders(ds.Orders)

	fmt.Fprintf(w, "Orders:          %d\n", len(ds.Orders))
	fmt.Fprintf(w, "BOM entries:     %d\n", len(ds.BOM))
	fmt.Fprintf(w, "Posts:           %d\n", len(ds.Posts))
	fmt.Fprintf(w, "Operations:      %d\n", len(ds.Operations))

	// Orders outside the BOM still plan, but never join a group.
	graph := services.NewBOMGraph(ds.BOM)
	outside := make(services.ProductSet)
	for _, order := range ds.Orders {
		if !graph.Contains(order.ProductID) {
			outside[order.ProductID.Normalized()] = struct{}{}
		}
	}
	fmt.Fprintf(w, "BOM products:    %d\n", len(graph.Products()))
	if len(outside) > 0 {
		fmt.Fprintf(w, "Not in BOM:      %v\n", outside.Sorted())
	}
	fmt.Fprintln(w)

	findings := 0
	for _, rowErr := range rowErrors {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("row:"), rowErr)
		findings++
	}
	for _, cycle := range bomResult.CyclePaths {
		fmt.Fprintf(w, "%s %v\n", color.RedString("cycle:"), cycle)
		findings++
	}
	for _, dup := range bomResult.DuplicateEntries {
		fmt.Fprintf(w, "%s %s -> %s\n", color.YellowString("duplicate BOM entry:"), dup.ParentID, dup.ChildID)
		findings++
	}
	for _, id := range orderResult.DuplicateOrders {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("duplicate order:"), id)
		findings++
	}

	if findings > 0 {
		fmt.Fprintf(w, "\n%s\n", color.RedString("%d finding(s)", findings))
		return ErrValidationFailed
	}
	fmt.Fprintf(w, "%s\n", color.GreenString("OK"))
	return nil
}
