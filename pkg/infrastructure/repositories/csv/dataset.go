package csv

import (
	"fmt"

	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/infrastructure/config"
)

// DataSet is everything a planning run reads from disk
type DataSet struct {
	Orders     []*entities.ManufacturingOrder
	BOM        []entities.BOMEntry
	Posts      []*calendar.Post
	Operations []entities.Operation
}

// LoadDataSet loads every configured input. Orders and BOM come either from
// separate files or from one compact file; posts, unavailability and
// operations are optional.
func (l *Loader) LoadDataSet(in config.InputsConfig) (*DataSet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ds := &DataSet{}
	var err error
	if in.Compact != "" {
		if ds.Orders, ds.BOM, err = l.LoadCompact(in.Compact); err != nil {
			return nil, fmt.Errorf("loading compact input: %w", err)
		}
	} else {
		if ds.Orders, err = l.LoadOrders(in.Orders); err != nil {
			return nil, fmt.Errorf("loading orders: %w", err)
		}
		if in.BOM != "" {
			if ds.BOM, err = l.LoadBOM(in.BOM); err != nil {
				return nil, fmt.Errorf("loading BOM: %w", err)
			}
		}
	}

	if in.Posts != "" {
		if ds.Posts, err = l.LoadPosts(in.Posts); err != nil {
			return nil, fmt.Errorf("loading posts: %w", err)
		}
	}
	if in.Unavailability != "" {
		if err := l.LoadUnavailability(in.Unavailability, ds.Posts); err != nil {
			return nil, fmt.Errorf("loading post unavailability: %w", err)
		}
	}
	if in.Operations != "" {
		if ds.Operations, err = l.LoadOperations(in.Operations); err != nil {
			return nil, fmt.Errorf("loading operations: %w", err)
		}
	}
	return ds, nil
}
