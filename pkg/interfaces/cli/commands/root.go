package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vsinha/moplan/pkg/infrastructure/config"
)

var (
	cfgPath string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "moplan",
	Short: "Group manufacturing orders and schedule them onto posts",
	Long: `moplan groups manufacturing orders that share a BOM family inside a
need-date window, balances stock between them and schedules every grouped
order onto its production posts.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable ANSI color output")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// inputFlags are the input file flags shared by plan and validate
type inputFlags struct {
	orders         string
	bom            string
	posts          string
	unavailability string
	operations     string
	compact        string
	strict         bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.orders, "orders", "", "manufacturing orders file")
	fs.StringVar(&f.bom, "bom", "", "BOM file")
	fs.StringVar(&f.posts, "posts", "", "posts file")
	fs.StringVar(&f.unavailability, "unavailability", "", "post unavailability file")
	fs.StringVar(&f.operations, "operations", "", "operations (routing) file")
	fs.StringVar(&f.compact, "compact", "", "single file holding OFS and BOM lines")
	fs.BoolVar(&f.strict, "strict", false, "abort on the first malformed row")
}

// apply overrides the configured inputs with the flags set on the command line
func (f *inputFlags) apply(cmd *cobra.Command, in *config.InputsConfig) {
	fs := cmd.Flags()
	if fs.Changed("orders") {
		in.Orders = f.orders
	}
	if fs.Changed("bom") {
		in.BOM = f.bom
	}
	if fs.Changed("posts") {
		in.Posts = f.posts
	}
	if fs.Changed("unavailability") {
		in.Unavailability = f.unavailability
	}
	if fs.Changed("operations") {
		in.Operations = f.operations
	}
	if fs.Changed("compact") {
		in.Compact = f.compact
	}
	if fs.Changed("strict") {
		in.Strict = f.strict
	}
}

// loadConfig reads the configuration file named by --config, if any, and
// applies the command line overrides
func loadConfig(cmd *cobra.Command, inputs *inputFlags, overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	inputs.apply(cmd, &cfg.Inputs)
	if overrides != nil {
		overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Inputs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid inputs: %w", err)
	}
	return cfg, nil
}
