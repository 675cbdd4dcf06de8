package board

import (
	"strconv"

	"mota-project/microservices/planning-service/models"
)

type SwimlaneMode string

const (
	SwimlaneNone     SwimlaneMode = "none"
	SwimlaneAssignee SwimlaneMode = "assignee"
	SwimlaneType     SwimlaneMode = "type"
)

// Lane is a display grouping laid over the columns. It has no effect on order.
type Lane struct {
	Key   string             `json:"key"`
	Label string             `json:"label"`
	Items []*models.WorkItem `json:"items"`
}

var typeLabels = []struct {
	Type  models.ItemType
	Label string
}{
	{models.TypeRequirement, "Requirements"},
	{models.TypeTask, "Tasks"},
	{models.TypeBug, "Bugs"},
}

// Swimlanes groups an already filtered sequence. Empty lanes are dropped and
// each lane keeps the order of the input.
func Swimlanes(items []*models.WorkItem, mode SwimlaneMode, members []models.Member) []Lane {
	switch mode {
	case SwimlaneAssignee:
		var lanes []Lane
		for _, m := range members {
			lane := Lane{Key: strconv.FormatInt(m.ID, 10), Label: m.Name}
			for _, item := range items {
				if item.AssigneeID != nil && *item.AssigneeID == m.ID {
					lane.Items = append(lane.Items, item)
				}
			}
			if len(lane.Items) > 0 {
				lanes = append(lanes, lane)
			}
		}
		rest := Lane{Key: Unassigned, Label: "Unassigned"}
		for _, item := range items {
			if item.AssigneeID == nil || !knownMember(members, *item.AssigneeID) {
				rest.Items = append(rest.Items, item)
			}
		}
		if len(rest.Items) > 0 {
			lanes = append(lanes, rest)
		}
		return lanes
	case SwimlaneType:
		var lanes []Lane
		for _, t := range typeLabels {
			lane := Lane{Key: string(t.Type), Label: t.Label}
			for _, item := range items {
				if item.Type == t.Type {
					lane.Items = append(lane.Items, item)
				}
			}
			if len(lane.Items) > 0 {
				lanes = append(lanes, lane)
			}
		}
		return lanes
	default:
		return []Lane{{Key: All, Label: "All", Items: items}}
	}
}

func knownMember(members []models.Member, id int64) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}
