package models

type Column struct {
	ID       string `json:"id" bson:"id" yaml:"id"`
	Project  string `json:"project" bson:"project" yaml:"-"`
	Name     string `json:"name" bson:"name" yaml:"name"`
	Color    string `json:"color" bson:"color" yaml:"color"`
	WIPLimit int    `json:"wipLimit" bson:"wipLimit" yaml:"wipLimit"`
	Order    int    `json:"order" bson:"order" yaml:"order"`
}

// ColumnPalette is the set of colors a column cycles through.
var ColumnPalette = []string{"#6b7280", "#2b7de9", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6"}

// NextColor returns the palette color following the current one.
// Colors outside the palette restart the cycle.
func NextColor(current string) string {
	for i, c := range ColumnPalette {
		if c == current {
			return ColumnPalette[(i+1)%len(ColumnPalette)]
		}
	}
	return ColumnPalette[0]
}

type WIPStatus string

const (
	WIPOk   WIPStatus = "ok"
	WIPNear WIPStatus = "near"
	WIPAt   WIPStatus = "at"
)

// ColumnView is a column together with its current occupancy.
type ColumnView struct {
	Column
	Count     int       `json:"count"`
	WIPStatus WIPStatus `json:"wipStatus"`
}
