package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

// BOMValidator provides validation for BOM structure integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles        bool
	CyclePaths       [][]entities.ProductID
	DuplicateEntries []entities.BOMEntry
	DuplicateOrders  []string
	Errors           []string
}

// HasFindings reports whether validation found anything worth reporting
func (r *ValidationResult) HasFindings() bool {
	return len(r.Errors) > 0
}

// ValidateBOM checks a set of BOM entries for cycles and duplicate lines
func (v *BOMValidator) ValidateBOM(entries []entities.BOMEntry) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:       make([][]entities.ProductID, 0),
		DuplicateEntries: make([]entities.BOMEntry, 0),
		Errors:           make([]string, 0),
	}

	adjacency := v.buildAdjacencyMap(entries)

	result.CyclePaths = v.detectCycles(adjacency)
	result.HasCycles = len(result.CyclePaths) > 0
	result.DuplicateEntries = v.detectDuplicateEntries(entries)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateEntries) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM entries", len(result.DuplicateEntries)))
	}

	return result
}

// ValidateOrders checks that order ids are unique
func (v *BOMValidator) ValidateOrders(orders []*entities.ManufacturingOrder) *ValidationResult {
	result := &ValidationResult{
		DuplicateOrders: make([]string, 0),
		Errors:          make([]string, 0),
	}

	seen := make(map[string]bool)
	for _, order := range orders {
		if seen[order.ID] {
			result.DuplicateOrders = append(result.DuplicateOrders, order.ID)
			continue
		}
		seen[order.ID] = true
	}

	if len(result.DuplicateOrders) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Duplicate order ids found: %v", result.DuplicateOrders))
	}
	return result
}

// buildAdjacencyMap creates a map of parent -> children relationships
func (v *BOMValidator) buildAdjacencyMap(entries []entities.BOMEntry) map[entities.ProductID][]entities.ProductID {
	adjacency := make(map[entities.ProductID][]entities.ProductID)

	for _, entry := range entries {
		parent, child := entry.Parent(), entry.Child()
		children := adjacency[parent]

		found := false
		for _, c := range children {
			if c == child {
				found = true
				break
			}
		}
		if !found {
			adjacency[parent] = append(children, child)
		}
	}

	return adjacency
}

// detectCycles uses DFS to find cycles in the BOM structure
func (v *BOMValidator) detectCycles(adjacency map[entities.ProductID][]entities.ProductID) [][]entities.ProductID {
	visited := make(map[entities.ProductID]bool)
	recursionStack := make(map[entities.ProductID]bool)
	cycles := make([][]entities.ProductID, 0)

	parents := make([]entities.ProductID, 0, len(adjacency))
	for parent := range adjacency {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacency, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *BOMValidator) dfsDetectCycle(
	current entities.ProductID,
	adjacency map[entities.ProductID][]entities.ProductID,
	visited map[entities.ProductID]bool,
	recursionStack map[entities.ProductID]bool,
	path []entities.ProductID,
	cycles *[][]entities.ProductID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacency[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacency, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}

		for i, part := range path {
			if part == child {
				cycle := make([]entities.ProductID, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateEntries finds BOM entries repeating the same parent and child
func (v *BOMValidator) detectDuplicateEntries(entries []entities.BOMEntry) []entities.BOMEntry {
	seen := make(map[string]entities.BOMEntry)
	duplicates := make([]entities.BOMEntry, 0)

	for _, entry := range entries {
		key := fmt.Sprintf("%s|%s", entry.Parent(), entry.Child())
		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, entry, existing)
			continue
		}
		seen[key] = entry
	}

	return duplicates
}
