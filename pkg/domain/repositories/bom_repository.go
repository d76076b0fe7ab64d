package repositories

import "github.com/vsinha/moplan/pkg/domain/entities"

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	GetAllBOMEntries() ([]entities.BOMEntry, error)
	GetChildEntries(parentID entities.ProductID) ([]entities.BOMEntry, error)
	LoadBOMEntries(entries []entities.BOMEntry) error
}
