package models

import "time"

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
)

// Notification is a transient toast shown to the user after a board action.
type Notification struct {
	Board     string            `json:"board"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"createdAt"`
}
