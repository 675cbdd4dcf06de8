package models

import "time"

type ItemType string

const (
	TypeRequirement ItemType = "requirement"
	TypeTask        ItemType = "task"
	TypeBug         ItemType = "bug"
)

func (t ItemType) Valid() bool {
	switch t {
	case TypeRequirement, TypeTask, TypeBug:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	// PriorityUrgent is only offered on the backlog.
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// StoryPointScale lists the estimates a work item may carry.
var StoryPointScale = []int{0, 1, 2, 3, 5, 8, 13, 21}

func ValidStoryPoints(points int) bool {
	for _, p := range StoryPointScale {
		if p == points {
			return true
		}
	}
	return false
}

// WorkItem is a requirement, task or defect on the backlog, or a card on the kanban board.
// IDs are unique within a project and view. Order is unique and dense only
// within the item's partition.
type WorkItem struct {
	ID          int64      `json:"id" bson:"id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Type        ItemType   `json:"type" bson:"type"`
	Priority    Priority   `json:"priority" bson:"priority"`
	StoryPoints int        `json:"storyPoints" bson:"storyPoints"`
	Project     string     `json:"project" bson:"project"`
	Status      string     `json:"status,omitempty" bson:"status,omitempty"`
	IterationID *int64     `json:"iterationId" bson:"iterationId"`
	Order       int        `json:"order" bson:"order"`
	AssigneeID  *int64     `json:"assigneeId" bson:"assigneeId"`
	Tags        []string   `json:"tags,omitempty" bson:"tags,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
}

// Clone returns a deep copy of the item.
func (w *WorkItem) Clone() *WorkItem {
	c := *w
	if w.IterationID != nil {
		id := *w.IterationID
		c.IterationID = &id
	}
	if w.AssigneeID != nil {
		id := *w.AssigneeID
		c.AssigneeID = &id
	}
	if w.DueDate != nil {
		d := *w.DueDate
		c.DueDate = &d
	}
	if w.Tags != nil {
		c.Tags = append([]string(nil), w.Tags...)
	}
	return &c
}

// ItemPatch carries the fields a user may edit in place. Nil fields are left untouched.
type ItemPatch struct {
	Title       *string   `json:"title,omitempty" bson:"title,omitempty"`
	Priority    *Priority `json:"priority,omitempty" bson:"priority,omitempty"`
	StoryPoints *int      `json:"storyPoints,omitempty" bson:"storyPoints,omitempty"`
	// AssigneeID of 0 clears the assignee.
	AssigneeID *int64 `json:"assigneeId,omitempty" bson:"-"`
}
