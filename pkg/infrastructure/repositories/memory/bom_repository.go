package memory

import (
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/domain/repositories"
)

// BOMRepository provides in-memory BOM storage indexed by parent product
type BOMRepository struct {
	entries    []entities.BOMEntry
	bomIndexes map[entities.ProductID][]int
}

// NewBOMRepository creates a BOM repository sized for the expected number of entries
func NewBOMRepository(expectedEntries int) *BOMRepository {
	return &BOMRepository{
		entries:    make([]entities.BOMEntry, 0, expectedEntries),
		bomIndexes: make(map[entities.ProductID][]int),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// LoadBOMEntries loads BOM entries into the repository
func (r *BOMRepository) LoadBOMEntries(entries []entities.BOMEntry) error {
	for _, entry := range entries {
		r.AddBOMEntry(entry)
	}
	return nil
}

// AddBOMEntry adds a BOM entry to the repository
func (r *BOMRepository) AddBOMEntry(entry entities.BOMEntry) {
	index := len(r.entries)
	r.entries = append(r.entries, entry)
	parent := entry.Parent()
	r.bomIndexes[parent] = append(r.bomIndexes[parent], index)
}

// GetChildEntries returns all BOM entries whose parent is the given product
func (r *BOMRepository) GetChildEntries(parentID entities.ProductID) ([]entities.BOMEntry, error) {
	indexes, exists := r.bomIndexes[parentID.Normalized()]
	if !exists {
		return []entities.BOMEntry{}, nil
	}

	entries := make([]entities.BOMEntry, 0, len(indexes))
	for _, index := range indexes {
		entries = append(entries, r.entries[index])
	}
	return entries, nil
}

// GetAllBOMEntries returns all BOM entries in load order
func (r *BOMRepository) GetAllBOMEntries() ([]entities.BOMEntry, error) {
	entries := make([]entities.BOMEntry, len(r.entries))
	copy(entries, r.entries)
	return entries, nil
}
