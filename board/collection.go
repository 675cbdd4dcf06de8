// Package board holds the ordering model shared by the backlog and the kanban
// board: an ordered collection of work items split into partitions, the filter
// view derived from it, and the controller that turns drag gestures into
// reorders and transfers.
package board

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"mota-project/microservices/planning-service/models"
)

// Collection holds the work items of one board view. Within every partition
// the order values form the dense sequence 1..n.
type Collection struct {
	axis  Axis
	items []*models.WorkItem
}

// NewCollection builds a collection and densifies every partition, keeping the
// existing order and breaking ties by id. Items without an order go last.
func NewCollection(axis Axis, items []*models.WorkItem) (*Collection, error) {
	c := &Collection{axis: axis}
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("load item %d: %w", item.ID, ErrDuplicateItem)
		}
		seen[item.ID] = struct{}{}
		c.items = append(c.items, item)
	}
	for _, key := range c.Partitions() {
		c.ReindexPartition(key)
	}
	return c, nil
}

func (c *Collection) Axis() Axis {
	return c.axis
}

func (c *Collection) Len() int {
	return len(c.items)
}

// Items returns every item in insertion order. The slice is a copy, the items are not.
func (c *Collection) Items() []*models.WorkItem {
	return slices.Clone(c.items)
}

func (c *Collection) indexOf(id int64) int {
	return slices.IndexFunc(c.items, func(w *models.WorkItem) bool { return w.ID == id })
}

func (c *Collection) Get(id int64) (*models.WorkItem, error) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
	}
	return c.items[i], nil
}

// Partition returns the items of one partition sorted by order.
func (c *Collection) Partition(key string) []*models.WorkItem {
	var part []*models.WorkItem
	for _, item := range c.items {
		if c.axis.Key(item) == key {
			part = append(part, item)
		}
	}
	sortByOrder(part)
	return part
}

func (c *Collection) Count(key string) int {
	n := 0
	for _, item := range c.items {
		if c.axis.Key(item) == key {
			n++
		}
	}
	return n
}

// Partitions returns the keys of every non-empty partition, sorted.
func (c *Collection) Partitions() []string {
	var keys []string
	for _, item := range c.items {
		key := c.axis.Key(item)
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// NextID returns an id larger than any id in the collection.
func (c *Collection) NextID() int64 {
	var highest int64
	for _, item := range c.items {
		highest = max(highest, item.ID)
	}
	return highest + 1
}

// Add appends a new item to the end of its partition.
func (c *Collection) Add(item *models.WorkItem) error {
	if c.indexOf(item.ID) >= 0 {
		return fmt.Errorf("add item %d: %w", item.ID, ErrDuplicateItem)
	}
	item.Order = c.Count(c.axis.Key(item)) + 1
	c.items = append(c.items, item)
	return nil
}

// Reindex assigns order 1..n to a partition following orderedIDs.
//
// orderedIDs may list only part of the partition, as a filtered view does. The
// listed items are then written back into the positions they already held, so
// unlisted items keep their place and the partition stays dense.
func (c *Collection) Reindex(key string, orderedIDs []int64) error {
	part := c.Partition(key)
	byID := make(map[int64]*models.WorkItem, len(part))
	for _, item := range part {
		byID[item.ID] = item
	}

	listed := make(map[int64]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: item %d is not in partition %q", ErrInvalidSequence, id, key)
		}
		if _, dup := listed[id]; dup {
			return fmt.Errorf("%w: item %d listed twice", ErrInvalidSequence, id)
		}
		listed[id] = struct{}{}
	}

	merged := make([]*models.WorkItem, len(part))
	next := 0
	for i, item := range part {
		if _, ok := listed[item.ID]; ok {
			merged[i] = byID[orderedIDs[next]]
			next++
			continue
		}
		merged[i] = item
	}
	renumber(merged)
	return nil
}

// ReindexPartition closes any gaps in a partition while keeping its relative order.
func (c *Collection) ReindexPartition(key string) {
	renumber(c.Partition(key))
}

// MovePartition moves an item to the end of another partition and densifies
// the partition it left. It returns the source partition key.
func (c *Collection) MovePartition(id int64, key string) (string, error) {
	item, err := c.Get(id)
	if err != nil {
		return "", err
	}
	from := c.axis.Key(item)
	if from == key {
		return from, nil
	}
	tail := c.Count(key)
	if err := c.axis.assign(item, key); err != nil {
		return from, err
	}
	item.Order = tail + 1
	c.ReindexPartition(from)
	return from, nil
}

// Delete removes an item. The caller reindexes the partition it was in.
func (c *Collection) Delete(id int64) (*models.WorkItem, error) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("delete item %d: %w", id, ErrItemNotFound)
	}
	removed := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	return removed, nil
}

// Snapshot returns deep copies of every item.
func (c *Collection) Snapshot() []*models.WorkItem {
	snap := make([]*models.WorkItem, len(c.items))
	for i, item := range c.items {
		snap[i] = item.Clone()
	}
	return snap
}

// Restore replaces the contents with a snapshot taken earlier.
func (c *Collection) Restore(snap []*models.WorkItem) {
	c.items = make([]*models.WorkItem, len(snap))
	for i, item := range snap {
		c.items[i] = item.Clone()
	}
}

func renumber(seq []*models.WorkItem) {
	for i, item := range seq {
		item.Order = i + 1
	}
}

func orderKey(item *models.WorkItem) int {
	if item.Order <= 0 {
		return math.MaxInt
	}
	return item.Order
}

func sortByOrder(items []*models.WorkItem) {
	slices.SortStableFunc(items, func(a, b *models.WorkItem) int {
		if c := cmp.Compare(orderKey(a), orderKey(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
