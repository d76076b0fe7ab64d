package csv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/entities"
	"github.com/vsinha/moplan/pkg/infrastructure/logging"
)

// dateLayouts are tried in order when parsing dates
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02/01/06"}

// Options controls how the loader treats malformed input
type Options struct {
	// Strict aborts on the first malformed row instead of skipping it.
	Strict bool
	// WorkingDay applies to posts without their own hours; zero means the
	// default working day.
	WorkingDay    calendar.WorkingDay
	MaxSearchDays int
}

// Loader handles loading planning data from delimited text files
type Loader struct {
	opts      Options
	logger    logging.Logger
	rowErrors []*RowError
}

// NewLoader creates a new loader. logger may be nil.
func NewLoader(opts Options, logger logging.Logger) *Loader {
	if opts.WorkingDay == (calendar.WorkingDay{}) {
		opts.WorkingDay = calendar.DefaultWorkingDay()
	}
	if opts.MaxSearchDays <= 0 {
		opts.MaxSearchDays = calendar.DefaultMaxSearchDays
	}
	return &Loader{opts: opts, logger: logging.OrNop(logger)}
}

// RowErrors returns the rows skipped so far in lenient mode
func (l *Loader) RowErrors() []*RowError {
	return append([]*RowError(nil), l.rowErrors...)
}

// rowError records a malformed row. It returns the error in strict mode and
// nil once the row has been logged and skipped otherwise.
func (l *Loader) rowError(file string, row int, err error) error {
	rowErr := &RowError{File: file, Row: row, Err: err}
	if l.opts.Strict {
		return rowErr
	}
	l.logger.Warnf("skipping %v", rowErr)
	l.rowErrors = append(l.rowErrors, rowErr)
	return nil
}

var orderColumns = []column{
	{name: "Part", aliases: []string{"ProductID", "Product"}, required: true},
	{name: "Description", aliases: []string{"Designation"}},
	{name: "Order Code", aliases: []string{"OrderID", "Order", "OF"}, required: true},
	{name: "FG"},
	{name: "CAT US FS"},
	{name: "Qty", aliases: []string{"Quantity"}, required: true},
	{name: "Date", aliases: []string{"Need Date", "NeedDate"}, required: true},
}

// LoadOrders loads manufacturing orders from a grouped-needs style file
func (l *Loader) LoadOrders(filename string) ([]*entities.ManufacturingOrder, error) {
	t, err := readTable(filename, '\t', orderColumns)
	if err != nil {
		return nil, err
	}

	var orders []*entities.ManufacturingOrder
	for _, r := range t.records {
		order, err := l.parseOrder(
			r.get("Order Code"),
			r.get("Description"),
			r.get("Part"),
			r.get("FG"),
			strings.Fields(r.get("CAT US FS")),
			r.get("Qty"),
			r.get("Date"),
		)
		if err != nil {
			if err := l.rowError(filename, r.line, err); err != nil {
				return nil, err
			}
			continue
		}
		orders = append(orders, order)
	}

	l.logger.Infof("loaded %d orders from %s", len(orders), filename)
	return orders, nil
}

// parseOrder builds an order from raw field values. catUSFS holds the CAT,
// US and FS tokens; US and FS default to "1" unless all three are given.
func (l *Loader) parseOrder(id, designation, part, fg string, catUSFS []string, qtyText, dateText string) (*entities.ManufacturingOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("order code is empty")
	}

	productID := entities.ProductID(strings.TrimSpace(part))
	productType, err := entities.ProductTypeFromID(productID)
	if err != nil {
		l.logger.Warnf("order %s: %v, using %s", id, err, entities.UnknownProduct)
		productType = entities.UnknownProduct
	}

	cat, us, fs := "", "1", "1"
	switch len(catUSFS) {
	case 0:
	case 3:
		cat, us, fs = catUSFS[0], catUSFS[1], catUSFS[2]
	default:
		cat = catUSFS[0]
		if len(catUSFS) > 1 {
			l.logger.Warnf("order %s: unexpected CAT US FS %q, using %s as CAT", id, strings.Join(catUSFS, " "), cat)
		}
	}

	level := 0
	if cat != "" {
		level, err = strconv.Atoi(cat)
		if err != nil || level < 0 {
			l.logger.Warnf("order %s: CAT %q is not a BOM level, using 0", id, cat)
			level = 0
		}
	}

	qty, err := entities.ParseQuantity(qtyText)
	if err != nil {
		return nil, err
	}
	needDate, err := parseDate(dateText)
	if err != nil {
		return nil, err
	}

	order, err := entities.NewManufacturingOrder(id, designation, productID, productType, level, needDate, qty, qtyText)
	if err != nil {
		return nil, err
	}
	order.FG = fg
	order.Cat = cat
	order.US = us
	order.FS = fs
	return order, nil
}

var bomColumns = []column{
	{name: "ParentProductID", aliases: []string{"Parent"}, required: true},
	{name: "ChildProductID", aliases: []string{"Child"}, required: true},
	{name: "QuantityChildPerParent", aliases: []string{"QtyPer", "Quantity"}, required: true},
	{name: "ChildBOMLevel", aliases: []string{"ChildLevel"}, required: true},
	{name: "ParentBOMLevel", aliases: []string{"ParentLevel"}},
}

// LoadBOM loads BOM entries
func (l *Loader) LoadBOM(filename string) ([]entities.BOMEntry, error) {
	t, err := readTable(filename, ',', bomColumns)
	if err != nil {
		return nil, err
	}

	var entries []entities.BOMEntry
	for _, r := range t.records {
		entry, err := parseBOMEntry(
			r.get("ParentProductID"),
			r.get("ChildProductID"),
			r.get("QuantityChildPerParent"),
			r.get("ChildBOMLevel"),
			r.get("ParentBOMLevel"),
		)
		if err != nil {
			if err := l.rowError(filename, r.line, err); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, *entry)
	}

	l.logger.Infof("loaded %d BOM entries from %s", len(entries), filename)
	return entries, nil
}

func parseBOMEntry(parent, child, qtyText, childLevelText, parentLevelText string) (*entities.BOMEntry, error) {
	qty, err := entities.ParseQuantity(qtyText)
	if err != nil {
		return nil, err
	}
	childLevel, err := parseLevel(childLevelText)
	if err != nil {
		return nil, fmt.Errorf("invalid child level: %w", err)
	}
	parentLevel := 0
	if parentLevelText != "" {
		if parentLevel, err = parseLevel(parentLevelText); err != nil {
			return nil, fmt.Errorf("invalid parent level: %w", err)
		}
	}
	return entities.NewBOMEntry(entities.ProductID(parent), entities.ProductID(child), qty, childLevel, parentLevel)
}

var postColumns = []column{
	{name: "PostID", aliases: []string{"Post"}, required: true},
	{name: "PostName", aliases: []string{"Name"}},
	{name: "DefaultCapacityHoursWeek", aliases: []string{"CapacityHoursWeek", "Capacity"}},
	{name: "WorkStart"},
	{name: "WorkEnd"},
	{name: "LunchStart"},
	{name: "LunchEnd"},
}

// LoadPosts loads posts. Optional WorkStart, WorkEnd, LunchStart and LunchEnd
// columns override the configured working day per post.
func (l *Loader) LoadPosts(filename string) ([]*calendar.Post, error) {
	t, err := readTable(filename, ',', postColumns)
	if err != nil {
		return nil, err
	}

	var posts []*calendar.Post
	seen := make(map[string]bool)
	for _, r := range t.records {
		post, err := l.parsePost(r)
		if err == nil && seen[post.ID] {
			err = fmt.Errorf("duplicate post %s", post.ID)
		}
		if err != nil {
			if err := l.rowError(filename, r.line, err); err != nil {
				return nil, err
			}
			continue
		}
		seen[post.ID] = true
		posts = append(posts, post)
	}

	l.logger.Infof("loaded %d posts from %s", len(posts), filename)
	return posts, nil
}

func (l *Loader) parsePost(r record) (*calendar.Post, error) {
	wd := l.opts.WorkingDay
	for _, f := range []struct {
		column string
		dst    *calendar.Clock
	}{
		{"WorkStart", &wd.Start},
		{"WorkEnd", &wd.End},
		{"LunchStart", &wd.LunchStart},
		{"LunchEnd", &wd.LunchEnd},
	} {
		raw := r.get(f.column)
		if raw == "" {
			continue
		}
		clock, err := calendar.ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.column, err)
		}
		*f.dst = clock
	}

	post, err := calendar.NewPost(r.get("PostID"), r.get("PostName"), wd)
	if err != nil {
		return nil, err
	}
	post.MaxSearchDays = l.opts.MaxSearchDays

	if raw := r.get("DefaultCapacityHoursWeek"); raw != "" {
		capacity, err := entities.ParseQuantity(raw)
		if err != nil {
			return nil, fmt.Errorf("capacity: %w", err)
		}
		post.WeeklyCapacityHours = capacity
	}
	return post, nil
}

var unavailabilityColumns = []column{
	{name: "PostID", aliases: []string{"Post"}, required: true},
	{name: "UnavailableStartDate", aliases: []string{"StartDate", "Start"}, required: true},
	{name: "UnavailableEndDate", aliases: []string{"EndDate", "End"}, required: true},
}

// LoadUnavailability adds the unavailability periods of a file to the posts
// they name. Periods for unknown posts are skipped with a warning.
func (l *Loader) LoadUnavailability(filename string, posts []*calendar.Post) error {
	t, err := readTable(filename, ',', unavailabilityColumns)
	if err != nil {
		return err
	}

	byID := make(map[string]*calendar.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	added := 0
	for _, r := range t.records {
		post, ok := byID[r.get("PostID")]
		if !ok {
			l.logger.Warnf("%s row %d: post %s not found, period ignored", filename, r.line, r.get("PostID"))
			continue
		}
		err := func() error {
			start, err := parseDate(r.get("UnavailableStartDate"))
			if err != nil {
				return err
			}
			end, err := parseDate(r.get("UnavailableEndDate"))
			if err != nil {
				return err
			}
			return post.AddUnavailability(start, end)
		}()
		if err != nil {
			if err := l.rowError(filename, r.line, err); err != nil {
				return err
			}
			continue
		}
		added++
	}

	l.logger.Infof("loaded %d unavailability periods from %s", added, filename)
	return nil
}

var operationColumns = []column{
	{name: "ProductID", aliases: []string{"Product"}},
	{name: "ProductType", aliases: []string{"Type"}},
	{name: "OperationName", aliases: []string{"Operation"}, required: true},
	{name: "PostID", aliases: []string{"Post"}, required: true},
	{name: "StandardTimeHours", aliases: []string{"Hours", "Duration"}, required: true},
	{name: "Sequence", aliases: []string{"Seq"}, required: true},
	{name: "Priority"},
}

// LoadOperations loads routing steps keyed by product id, or by product type
// when the product id is empty
func (l *Loader) LoadOperations(filename string) ([]entities.Operation, error) {
	t, err := readTable(filename, ',', operationColumns)
	if err != nil {
		return nil, err
	}
	if len(t.records) > 0 && !t.records[0].has("ProductID") && !t.records[0].has("ProductType") {
		return nil, fmt.Errorf("%s: %w: ProductID or ProductType", filename, ErrMissingColumns)
	}

	var operations []entities.Operation
	for _, r := range t.records {
		op, err := parseOperation(r)
		if err != nil {
			if err := l.rowError(filename, r.line, err); err != nil {
				return nil, err
			}
			continue
		}
		operations = append(operations, *op)
	}

	l.logger.Infof("loaded %d operations from %s", len(operations), filename)
	return operations, nil
}

func parseOperation(r record) (*entities.Operation, error) {
	key := r.get("ProductID")
	if key == "" {
		key = strings.ToUpper(r.get("ProductType"))
	}
	if key == "" {
		return nil, fmt.Errorf("neither product id nor product type given")
	}

	hours, err := entities.ParseQuantity(r.get("StandardTimeHours"))
	if err != nil {
		return nil, fmt.Errorf("standard time: %w", err)
	}
	sequence, err := strconv.Atoi(r.get("Sequence"))
	if err != nil {
		return nil, fmt.Errorf("invalid sequence %q", r.get("Sequence"))
	}
	priority := 1
	if raw := r.get("Priority"); raw != "" {
		if priority, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("invalid priority %q", raw)
		}
	}

	return entities.NewOperation(key, r.get("OperationName"), r.get("PostID"), hours, sequence, priority)
}

func parseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, DD/MM/YYYY or DD/MM/YY)", text)
}

func parseLevel(text string) (int, error) {
	level, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	if level < 0 {
		return 0, fmt.Errorf("level cannot be negative, got %d", level)
	}
	return level, nil
}
