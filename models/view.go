package models

// View is one of the two screens a project's work items are planned on.
type View string

const (
	ViewBacklog View = "backlog"
	ViewKanban  View = "kanban"
)

func (v View) Valid() bool {
	return v == ViewBacklog || v == ViewKanban
}
