package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

// BOMEdge is a directed parent to child relation with its quantity per parent
type BOMEdge struct {
	Parent       entities.ProductID
	Child        entities.ProductID
	QtyPerParent decimal.Decimal
}

// ProductSet is a set of normalized product ids
type ProductSet map[entities.ProductID]struct{}

// Has reports whether the set contains the product
func (s ProductSet) Has(p entities.ProductID) bool {
	_, ok := s[p.Normalized()]
	return ok
}

// Sorted returns the products of the set in ascending order
func (s ProductSet) Sorted() []entities.ProductID {
	out := make([]entities.ProductID, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BOMGraph is a read-only view of the bill of materials. It keeps an
// undirected graph for family reachability and directed adjacency for
// quantity propagation. Family lookups are cached, so a BOMGraph must not
// be shared between goroutines.
type BOMGraph struct {
	ids      map[entities.ProductID]int64
	products []entities.ProductID

	undirected *simple.UndirectedGraph
	directed   *simple.DirectedGraph

	children map[entities.ProductID][]BOMEdge

	childLevel  map[entities.ProductID]int
	parentLevel map[entities.ProductID]int

	families map[entities.ProductID]ProductSet
}

// NewBOMGraph builds a BOM graph from a list of entries. Product ids are
// normalized before insertion.
func NewBOMGraph(entries []entities.BOMEntry) *BOMGraph {
	g := &BOMGraph{
		ids:         make(map[entities.ProductID]int64),
		undirected:  simple.NewUndirectedGraph(),
		directed:    simple.NewDirectedGraph(),
		children:    make(map[entities.ProductID][]BOMEdge),
		childLevel:  make(map[entities.ProductID]int),
		parentLevel: make(map[entities.ProductID]int),
		families:    make(map[entities.ProductID]ProductSet),
	}

	for _, entry := range entries {
		parent, child := entry.Parent(), entry.Child()
		if parent == "" || child == "" || parent == child {
			continue
		}
		pid, cid := g.nodeID(parent), g.nodeID(child)

		if !g.undirected.HasEdgeBetween(pid, cid) {
			g.undirected.SetEdge(g.undirected.NewEdge(simple.Node(pid), simple.Node(cid)))
		}
		if !g.directed.HasEdgeFromTo(pid, cid) {
			g.directed.SetEdge(g.directed.NewEdge(simple.Node(pid), simple.Node(cid)))
		}

		edge := BOMEdge{Parent: parent, Child: child, QtyPerParent: entry.QtyPerParent}
		g.children[parent] = append(g.children[parent], edge)

		if lvl, ok := g.childLevel[child]; !ok || entry.ChildLevel > lvl {
			g.childLevel[child] = entry.ChildLevel
		}
		if entry.ParentLevel > 0 && entry.ParentLevel > g.parentLevel[parent] {
			g.parentLevel[parent] = entry.ParentLevel
		}
	}

	return g
}

func (g *BOMGraph) nodeID(p entities.ProductID) int64 {
	if id, ok := g.ids[p]; ok {
		return id
	}
	id := int64(len(g.products))
	g.ids[p] = id
	g.products = append(g.products, p)
	g.undirected.AddNode(simple.Node(id))
	g.directed.AddNode(simple.Node(id))
	return id
}

// Products returns every product that appears in the BOM, sorted
func (g *BOMGraph) Products() []entities.ProductID {
	out := make([]entities.ProductID, len(g.products))
	copy(out, g.products)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether the product appears in the BOM
func (g *BOMGraph) Contains(p entities.ProductID) bool {
	_, ok := g.ids[p.Normalized()]
	return ok
}

// Children returns the direct child edges of a product
func (g *BOMGraph) Children(p entities.ProductID) []BOMEdge {
	return g.children[p.Normalized()]
}

// Level resolves the BOM level of a product: the deepest level at which it
// appears as a child, else the deepest recorded parent level, else fallback.
func (g *BOMGraph) Level(p entities.ProductID, fallback int) int {
	norm := p.Normalized()
	if lvl, ok := g.childLevel[norm]; ok {
		return lvl
	}
	if lvl, ok := g.parentLevel[norm]; ok {
		return lvl
	}
	return fallback
}

// Family returns every product connected to p through BOM relations in
// either direction, p included. A product absent from the BOM is its own
// family.
func (g *BOMGraph) Family(p entities.ProductID) ProductSet {
	norm := p.Normalized()
	if family, ok := g.families[norm]; ok {
		return family
	}

	id, ok := g.ids[norm]
	if !ok {
		return ProductSet{norm: {}}
	}

	family := make(ProductSet)
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			family[g.products[n.ID()]] = struct{}{}
		},
	}
	bf.Walk(g.undirected, simple.Node(id), nil)

	// every member of a connected component shares the same family
	for member := range family {
		g.families[member] = family
	}
	return family
}

// Related reports whether a direct BOM entry links a and b in either direction
func (g *BOMGraph) Related(a, b entities.ProductID) bool {
	aid, ok := g.ids[a.Normalized()]
	if !ok {
		return false
	}
	bid, ok := g.ids[b.Normalized()]
	if !ok {
		return false
	}
	return g.undirected.HasEdgeBetween(aid, bid)
}

// Descendants returns every product reachable downwards from p, p excluded.
// The walk terminates on cyclic BOMs.
func (g *BOMGraph) Descendants(p entities.ProductID) []entities.ProductID {
	id, ok := g.ids[p.Normalized()]
	if !ok {
		return nil
	}

	var out []entities.ProductID
	df := traverse.DepthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != id {
				out = append(out, g.products[n.ID()])
			}
		},
	}
	df.Walk(g.directed, simple.Node(id), nil)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
