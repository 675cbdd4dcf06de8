package board

import (
	"fmt"
	"strconv"

	"mota-project/microservices/planning-service/models"
)

// Axis selects which field of a work item partitions the collection.
type Axis int

const (
	// AxisStatus partitions by kanban column.
	AxisStatus Axis = iota
	// AxisIteration partitions by sprint, with unplanned items in their own partition.
	AxisIteration
)

// Unplanned is the backlog partition holding items without an iteration.
const Unplanned = "unplanned"

// AxisFor returns the axis a view is partitioned on.
func AxisFor(view models.View) Axis {
	if view == models.ViewBacklog {
		return AxisIteration
	}
	return AxisStatus
}

func (a Axis) String() string {
	if a == AxisIteration {
		return "iteration"
	}
	return "status"
}

// Key returns the partition the item belongs to along the axis.
func (a Axis) Key(item *models.WorkItem) string {
	if a == AxisIteration {
		if item.IterationID == nil {
			return Unplanned
		}
		return IterationKey(*item.IterationID)
	}
	return item.Status
}

func (a Axis) assign(item *models.WorkItem, key string) error {
	if a == AxisIteration {
		if key == Unplanned {
			item.IterationID = nil
			return nil
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownPartition, key)
		}
		item.IterationID = &id
		return nil
	}
	if key == "" {
		return fmt.Errorf("%w: empty status", ErrUnknownPartition)
	}
	item.Status = key
	return nil
}

// allows reports whether a priority may be set on items of the axis.
// Urgent is a backlog priority and is refused on the kanban board.
func (a Axis) allows(p models.Priority) bool {
	if !p.Valid() {
		return false
	}
	return a == AxisIteration || p != models.PriorityUrgent
}

// IterationKey is the partition key of an iteration on the backlog axis.
func IterationKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
