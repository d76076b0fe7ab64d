package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BOMEntry represents a single parent/child relation in the Bill of Materials
type BOMEntry struct {
	ParentID     ProductID
	ChildID      ProductID
	QtyPerParent decimal.Decimal
	ChildLevel   int
	// ParentLevel is optional; zero means unknown.
	ParentLevel int
}

// NewBOMEntry creates a validated BOMEntry
func NewBOMEntry(parentID, childID ProductID, qtyPerParent decimal.Decimal, childLevel, parentLevel int) (*BOMEntry, error) {
	if parentID.Normalized() == "" {
		return nil, fmt.Errorf("parent product id cannot be empty")
	}
	if childID.Normalized() == "" {
		return nil, fmt.Errorf("child product id cannot be empty")
	}
	if parentID.Normalized() == childID.Normalized() {
		return nil, fmt.Errorf("parent and child product ids cannot be the same: %s", parentID)
	}
	if !qtyPerParent.IsPositive() {
		return nil, fmt.Errorf("quantity per parent must be positive, got %s", qtyPerParent)
	}
	if childLevel < 0 {
		return nil, fmt.Errorf("child bom level cannot be negative, got %d", childLevel)
	}
	if parentLevel < 0 {
		return nil, fmt.Errorf("parent bom level cannot be negative, got %d", parentLevel)
	}

	return &BOMEntry{
		ParentID:     parentID,
		ChildID:      childID,
		QtyPerParent: qtyPerParent,
		ChildLevel:   childLevel,
		ParentLevel:  parentLevel,
	}, nil
}

// Parent returns the normalized parent product id
func (b BOMEntry) Parent() ProductID {
	return b.ParentID.Normalized()
}

// Child returns the normalized child product id
func (b BOMEntry) Child() ProductID {
	return b.ChildID.Normalized()
}
