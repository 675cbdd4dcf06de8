package models

import "time"

type IterationStatus string

const (
	IterationActive    IterationStatus = "active"
	IterationUpcoming  IterationStatus = "upcoming"
	IterationPlanned   IterationStatus = "planned"
	IterationCompleted IterationStatus = "completed"
)

// Iteration is a sprint. IDs are unique within a project. Items and Points are
// denormalised counters that are adjusted on every transfer into or out of the
// iteration.
type Iteration struct {
	ID        int64           `json:"id" bson:"id" yaml:"id"`
	Project   string          `json:"project" bson:"project" yaml:"-"`
	Name      string          `json:"name" bson:"name" yaml:"name"`
	Status    IterationStatus `json:"status" bson:"status" yaml:"status"`
	StartDate time.Time       `json:"startDate" bson:"startDate" yaml:"startDate"`
	EndDate   time.Time       `json:"endDate" bson:"endDate" yaml:"endDate"`
	Items     int             `json:"items" bson:"items" yaml:"items"`
	Points    int             `json:"points" bson:"points" yaml:"points"`
}
