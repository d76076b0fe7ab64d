package commands

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

// Generated scenario file names
const (
	GeneratedOrdersFile         = "orders.tsv"
	GeneratedBOMFile            = "bom.csv"
	GeneratedPostsFile          = "posts.csv"
	GeneratedOperationsFile     = "operations.csv"
	GeneratedUnavailabilityFile = "unavailability.csv"
)

// GenerateConfig holds the parameters of a synthetic scenario
type GenerateConfig struct {
	Families  int
	Orders    int
	Posts     int
	SpanWeeks int
	Start     time.Time
	OutputDir string
	Seed      int64
}

// BOMNode is one product of a generated family tree
type BOMNode struct {
	ProductID entities.ProductID
	Type      entities.ProductType
	Level     int
	Family    int
	Children  []*BOMNode
	Quantity  int
	IsShared  bool
}

var generateOptions struct {
	families  int
	orders    int
	posts     int
	spanWeeks int
	start     string
	outputDir string
	seed      int64
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic scenario (orders, BOM, posts, operations)",
	Example: `  # Small reproducible scenario
  moplan generate --families 5 --orders 40 --output-dir ./scenario --seed 42

  # Then plan it
  moplan plan --orders scenario/orders.tsv --bom scenario/bom.csv \
    --posts scenario/posts.csv --operations scenario/operations.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := time.Parse("2006-01-02", generateOptions.start)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		cfg := GenerateConfig{
			Families:  generateOptions.families,
			Orders:    generateOptions.orders,
			Posts:     generateOptions.posts,
			SpanWeeks: generateOptions.spanWeeks,
			Start:     start,
			OutputDir: generateOptions.outputDir,
			Seed:      generateOptions.seed,
		}
		if !cmd.Flags().Changed("seed") {
			cfg.Seed = time.Now().UnixNano()
		}
		return runGenerate(cfg, cmd.OutOrStdout())
	},
}

func init() {
	fs := generateCmd.Flags()
	fs.IntVar(&generateOptions.families, "families", 5, "number of finished products (BOM families)")
	fs.IntVar(&generateOptions.orders, "orders", 40, "number of manufacturing orders")
	fs.IntVar(&generateOptions.posts, "posts", 4, "number of production posts")
	fs.IntVar(&generateOptions.spanWeeks, "span-weeks", 8, "spread need dates over this many weeks")
	fs.StringVar(&generateOptions.start, "start", "2025-03-03", "first need date (YYYY-MM-DD)")
	fs.StringVar(&generateOptions.outputDir, "output-dir", "scenario", "directory the files are written to")
	fs.Int64Var(&generateOptions.seed, "seed", 0, "random seed for reproducible output")
	rootCmd.AddCommand(generateCmd)
}

// Validate checks the generator parameters
func (c GenerateConfig) Validate() error {
	switch {
	case c.Families < 1:
		return fmt.Errorf("families must be positive, got %d", c.Families)
	case c.Orders < 1:
		return fmt.Errorf("orders must be positive, got %d", c.Orders)
	case c.Posts < 1:
		return fmt.Errorf("posts must be positive, got %d", c.Posts)
	case c.SpanWeeks < 1:
		return fmt.Errorf("span-weeks must be positive, got %d", c.SpanWeeks)
	case c.OutputDir == "":
		return fmt.Errorf("an output directory is required")
	}
	return nil
}

type scenarioGenerator struct {
	config GenerateConfig
	rand   *rand.Rand
}

func runGenerate(cfg GenerateConfig, w io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	g := &scenarioGenerator{config: cfg, rand: rand.New(rand.NewSource(cfg.Seed))}
	nodes := g.generateBOMTree()

	steps := []struct {
		file  string
		write func(io.Writer) error
	}{
		{GeneratedBOMFile, func(w io.Writer) error { return g.writeBOM(w, nodes) }},
		{GeneratedOrdersFile, func(w io.Writer) error { return g.writeOrders(w, nodes) }},
		{GeneratedPostsFile, g.writePosts},
		{GeneratedOperationsFile, g.writeOperations},
		{GeneratedUnavailabilityFile, g.writeUnavailability},
	}
	for _, step := range steps {
		if err := writeFile(filepath.Join(cfg.OutputDir, step.file), step.write); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s %d products, %d orders, %d posts in %s (seed %d)\n",
		color.GreenString("generated"), len(nodes), cfg.Orders, cfg.Posts, cfg.OutputDir, cfg.Seed)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// generateBOMTree builds one PF -> SF -> PS tree per family. Base products
// are sometimes shared with an earlier family.
func (g *scenarioGenerator) generateBOMTree() []*BOMNode {
	var nodes, bases []*BOMNode
	sfCount, psCount := 0, 0

	for family := 1; family <= g.config.Families; family++ {
		root := &BOMNode{
			ProductID: entities.ProductID(fmt.Sprintf("PF%03d", family)),
			Type:      entities.Finished,
			Family:    family,
		}
		nodes = append(nodes, root)

		// 1-2 semi-finished per finished product
		numSemi := 1 + g.rand.Intn(2)
		for s := 0; s < numSemi; s++ {
			sfCount++
			sf := &BOMNode{
				ProductID: entities.ProductID(fmt.Sprintf("SF%03d", sfCount)),
				Type:      entities.SemiFinished,
				Level:     1,
				Family:    family,
				Quantity:  1 + g.rand.Intn(3),
			}
			root.Children = append(root.Children, sf)
			nodes = append(nodes, sf)

			// 1-3 bases per semi-finished, 25% chance to reuse one
			numBases := 1 + g.rand.Intn(3)
			for b := 0; b < numBases; b++ {
				var ps *BOMNode
				if len(bases) > 0 && g.rand.Float64() < 0.25 {
					ps = bases[g.rand.Intn(len(bases))]
					if containsNode(sf.Children, ps) {
						continue
					}
					ps.IsShared = true
				} else {
					psCount++
					ps = &BOMNode{
						ProductID: entities.ProductID(fmt.Sprintf("PS%03d", psCount)),
						Type:      entities.Base,
						Level:     2,
						Family:    family,
						Quantity:  2 + g.rand.Intn(9),
					}
					bases = append(bases, ps)
					nodes = append(nodes, ps)
				}
				sf.Children = append(sf.Children, ps)
			}
		}
	}
	return nodes
}

func containsNode(nodes []*BOMNode, n *BOMNode) bool {
	for _, c := range nodes {
		if c == n {
			return true
		}
	}
	return false
}

func (g *scenarioGenerator) writeBOM(w io.Writer, nodes []*BOMNode) error {
	if _, err := fmt.Fprintln(w, "ParentProductID,ChildProductID,QuantityChildPerParent,ChildBOMLevel,ParentBOMLevel"); err != nil {
		return err
	}
	for _, parent := range nodes {
		for _, child := range parent.Children {
			if _, err := fmt.Fprintf(w, "%s,%s,%d,%d,%d\n",
				parent.ProductID, child.ProductID, child.Quantity, child.Level, parent.Level); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeOrders draws orders across all products. Need dates are spread over
// the span, skipping weekends.
func (g *scenarioGenerator) writeOrders(w io.Writer, nodes []*BOMNode) error {
	if _, err := fmt.Fprintln(w, "Part\tDescription\tOrder Code\tFG\tCAT US FS\tQty\tDate"); err != nil {
		return err
	}

	type order struct {
		node *BOMNode
		id   string
		qty  int
		need time.Time
	}
	orders := make([]order, 0, g.config.Orders)
	for i := 1; i <= g.config.Orders; i++ {
		node := nodes[g.rand.Intn(len(nodes))]
		need := g.config.Start.AddDate(0, 0, g.rand.Intn(g.config.SpanWeeks*7))
		for need.Weekday() == time.Saturday || need.Weekday() == time.Sunday {
			need = need.AddDate(0, 0, 1)
		}
		qty := 1 + g.rand.Intn(20)
		if node.Type == entities.Base {
			qty *= 10
		}
		orders = append(orders, order{node: node, id: fmt.Sprintf("MO%05d", i), qty: qty, need: need})
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].need.Before(orders[j].need) })

	for _, o := range orders {
		if _, err := fmt.Fprintf(w, "%s\t%s %s\t%s\tFG%03d\t%d 1 1\t%d\t%s\n",
			o.node.ProductID, productLabel(o.node.Type), o.node.ProductID, o.id,
			o.node.Family, o.node.Level, o.qty, o.need.Format("2006-01-02")); err != nil {
			return err
		}
	}
	return nil
}

func productLabel(t entities.ProductType) string {
	switch t {
	case entities.Finished:
		return "Finished"
	case entities.SemiFinished:
		return "Semi"
	default:
		return "Base"
	}
}

func (g *scenarioGenerator) writePosts(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "PostID,PostName,DefaultCapacityHoursWeek"); err != nil {
		return err
	}
	for i := 1; i <= g.config.Posts; i++ {
		if _, err := fmt.Fprintf(w, "P%d,Post %d,35\n", i, i); err != nil {
			return err
		}
	}
	return nil
}

// writeOperations emits a routing per product type, each step on a random post
func (g *scenarioGenerator) writeOperations(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "ProductType,OperationName,PostID,StandardTimeHours,Sequence"); err != nil {
		return err
	}
	routings := []struct {
		productType entities.ProductType
		steps       []string
	}{
		{entities.Base, []string{"Weigh", "Mix"}},
		{entities.SemiFinished, []string{"Shape", "Cure"}},
		{entities.Finished, []string{"Pack"}},
	}
	for _, r := range routings {
		for i, step := range r.steps {
			hours := 0.5 * float64(1+g.rand.Intn(6))
			if _, err := fmt.Fprintf(w, "%s,%s,P%d,%.1f,%d\n",
				r.productType, step, 1+g.rand.Intn(g.config.Posts), hours, (i+1)*10); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeUnavailability closes each post for one or two random weekdays
func (g *scenarioGenerator) writeUnavailability(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "PostID,UnavailableStartDate,UnavailableEndDate"); err != nil {
		return err
	}
	for i := 1; i <= g.config.Posts; i++ {
		start := g.config.Start.AddDate(0, 0, g.rand.Intn(g.config.SpanWeeks*7))
		end := start.AddDate(0, 0, g.rand.Intn(2))
		if _, err := fmt.Fprintf(w, "P%d,%s,%s\n", i, start.Format("2006-01-02"), end.Format("2006-01-02")); err != nil {
			return err
		}
	}
	return nil
}
