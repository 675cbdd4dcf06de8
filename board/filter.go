package board

import (
	"strconv"
	"strings"

	"mota-project/microservices/planning-service/models"
)

// All disables a scalar filter, as does the empty string.
const All = "all"

// Unassigned selects items without an assignee in Filter.Assignee.
const Unassigned = "unassigned"

// Filter describes the visible subset of a board.
type Filter struct {
	// Partition restricts the view to one partition. Empty shows every partition.
	Partition string `json:"partition"`
	Project   string `json:"project"`
	Type      string `json:"type"`
	Priority  string `json:"priority"`
	Assignee  string `json:"assignee"`
	// Iteration narrows a kanban board to one sprint; Unplanned selects items without one.
	Iteration string `json:"iteration"`
	Search    string `json:"search"`
}

func enabled(v string) bool {
	return v != "" && v != All
}

// Visible returns the items matching the filter, sorted by order. It never
// mutates its input and returns an empty slice when nothing matches.
func Visible(axis Axis, items []*models.WorkItem, f Filter) []*models.WorkItem {
	visible := []*models.WorkItem{}
	for _, item := range items {
		if f.Match(axis, item) {
			visible = append(visible, item)
		}
	}
	sortByOrder(visible)
	return visible
}

// Match reports whether a single item passes the filter.
func (f Filter) Match(axis Axis, item *models.WorkItem) bool {
	if f.Partition != "" && axis.Key(item) != f.Partition {
		return false
	}
	if enabled(f.Project) && item.Project != f.Project {
		return false
	}
	if enabled(f.Type) && string(item.Type) != f.Type {
		return false
	}
	if enabled(f.Priority) && string(item.Priority) != f.Priority {
		return false
	}
	if enabled(f.Assignee) && !matchRef(item.AssigneeID, f.Assignee, Unassigned) {
		return false
	}
	if enabled(f.Iteration) && !matchRef(item.IterationID, f.Iteration, Unplanned) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		byTitle := strings.Contains(strings.ToLower(item.Title), q)
		byID := q == "#"+strconv.FormatInt(item.ID, 10)
		if !byTitle && !byID {
			return false
		}
	}
	return true
}

func matchRef(ref *int64, want, none string) bool {
	if want == none {
		return ref == nil
	}
	id, err := strconv.ParseInt(want, 10, 64)
	if err != nil {
		return false
	}
	return ref != nil && *ref == id
}

// Stats returns the number of items and the sum of their story points.
func Stats(items []*models.WorkItem) (count, points int) {
	for _, item := range items {
		points += item.StoryPoints
	}
	return len(items), points
}
