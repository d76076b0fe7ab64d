package csv

import (
	"fmt"
	"strings"

	"github.com/vsinha/moplan/pkg/domain/entities"
)

const (
	compactOrderTag = "OFS"
	compactBOMTag   = "BOM"
)

// LoadCompact loads orders and BOM entries from a single tab-separated file.
// Each line starts with a tag:
//
//	OFS  id  designation  product  fg  cat  us  fs  qty  need-date
//	BOM  parent  child  qty-per-parent  child-level
//
// Blank lines and lines starting with # are ignored, as are unknown tags.
func (l *Loader) LoadCompact(filename string) ([]*entities.ManufacturingOrder, []entities.BOMEntry, error) {
	data, err := readText(filename)
	if err != nil {
		return nil, nil, err
	}

	var orders []*entities.ManufacturingOrder
	var entries []entities.BOMEntry
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}

		var rowErr error
		switch strings.ToUpper(parts[0]) {
		case compactOrderTag:
			if len(parts) < 10 {
				rowErr = fmt.Errorf("OFS line needs 10 fields, got %d", len(parts))
				break
			}
			// cat, us and fs are separate columns here and are kept as written
			var order *entities.ManufacturingOrder
			order, rowErr = l.parseOrder(parts[1], parts[2], parts[3], parts[4], parts[5:8], parts[8], parts[9])
			if rowErr == nil {
				orders = append(orders, order)
			}
		case compactBOMTag:
			if len(parts) < 5 {
				rowErr = fmt.Errorf("BOM line needs 5 fields, got %d", len(parts))
				break
			}
			var entry *entities.BOMEntry
			entry, rowErr = parseBOMEntry(parts[1], parts[2], parts[3], parts[4], "")
			if rowErr == nil {
				entries = append(entries, *entry)
			}
		default:
			l.logger.Debugf("%s line %d: ignoring tag %q", filename, i+1, parts[0])
		}

		if rowErr != nil {
			if err := l.rowError(filename, i+1, rowErr); err != nil {
				return nil, nil, err
			}
		}
	}

	l.logger.Infof("loaded %d orders and %d BOM entries from %s", len(orders), len(entries), filename)
	return orders, entries, nil
}
