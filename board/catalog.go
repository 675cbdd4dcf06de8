package board

import (
	"fmt"
	"slices"
	"strings"

	"mota-project/microservices/planning-service/models"
)

// PartitionInfo describes a partition as the controller sees it.
type PartitionInfo struct {
	Name string
	// WIPLimit of 0 means unlimited.
	WIPLimit int
}

// Catalog resolves partition keys to their display name and capacity.
type Catalog interface {
	Lookup(partition string) (PartitionInfo, bool)
}

// ColumnSet is the column configuration of one kanban board.
type ColumnSet struct {
	columns []models.Column
}

func NewColumnSet(columns []models.Column) *ColumnSet {
	s := &ColumnSet{columns: slices.Clone(columns)}
	slices.SortStableFunc(s.columns, func(a, b models.Column) int { return a.Order - b.Order })
	return s
}

// Columns returns a copy of the columns in board order.
func (s *ColumnSet) Columns() []models.Column {
	return slices.Clone(s.columns)
}

func (s *ColumnSet) find(id string) (*models.Column, error) {
	for i := range s.columns {
		if s.columns[i].ID == id {
			return &s.columns[i], nil
		}
	}
	return nil, fmt.Errorf("column %q: %w", id, ErrUnknownColumn)
}

func (s *ColumnSet) Lookup(partition string) (PartitionInfo, bool) {
	col, err := s.find(partition)
	if err != nil {
		return PartitionInfo{}, false
	}
	return PartitionInfo{Name: col.Name, WIPLimit: col.WIPLimit}, true
}

func (s *ColumnSet) SetWIPLimit(id string, limit int) (models.Column, error) {
	if limit < 0 {
		return models.Column{}, ErrInvalidWIPLimit
	}
	col, err := s.find(id)
	if err != nil {
		return models.Column{}, err
	}
	col.WIPLimit = limit
	return *col, nil
}

func (s *ColumnSet) Rename(id, name string) (models.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Column{}, ErrEmptyName
	}
	col, err := s.find(id)
	if err != nil {
		return models.Column{}, err
	}
	col.Name = name
	return *col, nil
}

// CycleColor advances the column to the next palette color.
func (s *ColumnSet) CycleColor(id string) (models.Column, error) {
	col, err := s.find(id)
	if err != nil {
		return models.Column{}, err
	}
	col.Color = models.NextColor(col.Color)
	return *col, nil
}

// Reorder sets the column positions. ids must name every column exactly once.
func (s *ColumnSet) Reorder(ids []string) error {
	if len(ids) != len(s.columns) {
		return fmt.Errorf("%w: got %d columns, board has %d", ErrInvalidSequence, len(ids), len(s.columns))
	}
	reordered := make([]models.Column, 0, len(ids))
	for i, id := range ids {
		col, err := s.find(id)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(reordered, func(c models.Column) bool { return c.ID == id }) {
			return fmt.Errorf("%w: column %q listed twice", ErrInvalidSequence, id)
		}
		c := *col
		c.Order = i + 1
		reordered = append(reordered, c)
	}
	s.columns = reordered
	return nil
}

// Restore replaces the columns with a copy taken earlier.
func (s *ColumnSet) Restore(columns []models.Column) {
	s.columns = slices.Clone(columns)
}

// Views pairs every column with its occupancy in the collection.
func (s *ColumnSet) Views(c *Collection) []models.ColumnView {
	views := make([]models.ColumnView, 0, len(s.columns))
	for _, col := range s.columns {
		n := c.Count(col.ID)
		views = append(views, models.ColumnView{Column: col, Count: n, WIPStatus: WIPStatusOf(n, col.WIPLimit)})
	}
	return views
}

// WIPStatusOf classifies an occupancy: at the limit, near it (80% or more), or fine.
func WIPStatusOf(count, limit int) models.WIPStatus {
	switch {
	case limit <= 0:
		return models.WIPOk
	case count >= limit:
		return models.WIPAt
	case count*5 >= limit*4:
		return models.WIPNear
	default:
		return models.WIPOk
	}
}

// IterationSet is the sprint catalog of one backlog. It keeps the per-sprint
// item and point counters in step with transfers.
type IterationSet struct {
	iterations []*models.Iteration
}

func NewIterationSet(iterations []models.Iteration) *IterationSet {
	s := &IterationSet{}
	for _, it := range iterations {
		s.iterations = append(s.iterations, &it)
	}
	return s
}

// Iterations returns copies of the iterations with their current counters.
func (s *IterationSet) Iterations() []models.Iteration {
	out := make([]models.Iteration, len(s.iterations))
	for i, it := range s.iterations {
		out[i] = *it
	}
	return out
}

// Restore resets the iterations and their counters to a copy taken earlier.
func (s *IterationSet) Restore(iterations []models.Iteration) {
	*s = *NewIterationSet(iterations)
}

func (s *IterationSet) byKey(key string) *models.Iteration {
	for _, it := range s.iterations {
		if IterationKey(it.ID) == key {
			return it
		}
	}
	return nil
}

func (s *IterationSet) Get(id int64) (models.Iteration, bool) {
	it := s.byKey(IterationKey(id))
	if it == nil {
		return models.Iteration{}, false
	}
	return *it, true
}

func (s *IterationSet) Lookup(partition string) (PartitionInfo, bool) {
	if partition == Unplanned {
		return PartitionInfo{Name: "Backlog"}, true
	}
	it := s.byKey(partition)
	if it == nil {
		return PartitionInfo{}, false
	}
	return PartitionInfo{Name: it.Name}, true
}

// ItemMoved adjusts the counters incrementally. An empty from means the item
// was created, an empty to means it was deleted.
func (s *IterationSet) ItemMoved(item *models.WorkItem, from, to string) {
	if it := s.byKey(from); it != nil {
		it.Items--
		it.Points -= item.StoryPoints
	}
	if it := s.byKey(to); it != nil {
		it.Items++
		it.Points += item.StoryPoints
	}
}

// Recount rebuilds every counter from the items, repairing drift left by
// stored counters that were written before the items were.
func (s *IterationSet) Recount(items []*models.WorkItem) {
	for _, it := range s.iterations {
		it.Items, it.Points = 0, 0
	}
	for _, item := range items {
		if item.IterationID == nil {
			continue
		}
		if it := s.byKey(IterationKey(*item.IterationID)); it != nil {
			it.Items++
			it.Points += item.StoryPoints
		}
	}
}
