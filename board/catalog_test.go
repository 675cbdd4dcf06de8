package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mota-project/microservices/planning-service/models"
)

func TestWIPStatusOf(t *testing.T) {
	assert.Equal(t, models.WIPOk, WIPStatusOf(10, 0))
	assert.Equal(t, models.WIPOk, WIPStatusOf(3, 5))
	assert.Equal(t, models.WIPNear, WIPStatusOf(4, 5))
	assert.Equal(t, models.WIPAt, WIPStatusOf(5, 5))
	assert.Equal(t, models.WIPAt, WIPStatusOf(6, 5))
	assert.Equal(t, models.WIPNear, WIPStatusOf(8, 10))
	assert.Equal(t, models.WIPOk, WIPStatusOf(7, 10))
}

func TestColumnSetEdits(t *testing.T) {
	cols := NewColumnSet(kanbanColumns(3))

	col, err := cols.SetWIPLimit("done", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, col.WIPLimit)
	_, err = cols.SetWIPLimit("done", -1)
	require.ErrorIs(t, err, ErrInvalidWIPLimit)
	_, err = cols.SetWIPLimit("archive", 1)
	require.ErrorIs(t, err, ErrUnknownColumn)

	col, err = cols.Rename("pending", "  To do ")
	require.NoError(t, err)
	assert.Equal(t, "To do", col.Name)
	_, err = cols.Rename("pending", " ")
	require.ErrorIs(t, err, ErrEmptyName)

	col, err = cols.CycleColor("pending")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnPalette[0], col.Color)
	col, err = cols.CycleColor("pending")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnPalette[1], col.Color)

	info, ok := cols.Lookup("done")
	require.True(t, ok)
	assert.Equal(t, PartitionInfo{Name: "Done", WIPLimit: 4}, info)
}

func TestColumnSetReorder(t *testing.T) {
	cols := NewColumnSet(kanbanColumns(0))

	require.NoError(t, cols.Reorder([]string{"done", "pending", "processing"}))
	got := cols.Columns()
	require.Len(t, got, 3)
	assert.Equal(t, "done", got[0].ID)
	assert.Equal(t, 1, got[0].Order)
	assert.Equal(t, "processing", got[2].ID)
	assert.Equal(t, 3, got[2].Order)

	require.ErrorIs(t, cols.Reorder([]string{"done", "pending"}), ErrInvalidSequence)
	require.ErrorIs(t, cols.Reorder([]string{"done", "done", "pending"}), ErrInvalidSequence)
	require.ErrorIs(t, cols.Reorder([]string{"done", "pending", "archive"}), ErrUnknownColumn)
	assert.Equal(t, got, cols.Columns())
}

func TestColumnViews(t *testing.T) {
	c, err := NewCollection(AxisStatus, []*models.WorkItem{
		card(1, "processing", 1), card(2, "processing", 2), card(3, "pending", 1),
	})
	require.NoError(t, err)
	cols := NewColumnSet(kanbanColumns(2))

	views := cols.Views(c)
	require.Len(t, views, 3)
	assert.Equal(t, 1, views[0].Count)
	assert.Equal(t, models.WIPOk, views[0].WIPStatus)
	assert.Equal(t, 2, views[1].Count)
	assert.Equal(t, models.WIPAt, views[1].WIPStatus)
	assert.Zero(t, views[2].Count)
}

func TestColumnSetRestore(t *testing.T) {
	cols := NewColumnSet(kanbanColumns(0))
	saved := cols.Columns()

	_, err := cols.Rename("done", "Shipped")
	require.NoError(t, err)
	cols.Restore(saved)

	info, _ := cols.Lookup("done")
	assert.Equal(t, "Done", info.Name)
}

func TestIterationSetLookupAndRestore(t *testing.T) {
	sprints := NewIterationSet([]models.Iteration{{ID: 12, Name: "Sprint 12", Items: 2, Points: 8}})

	info, ok := sprints.Lookup(Unplanned)
	require.True(t, ok)
	assert.Equal(t, "Backlog", info.Name)
	info, ok = sprints.Lookup("12")
	require.True(t, ok)
	assert.Equal(t, "Sprint 12", info.Name)
	_, ok = sprints.Lookup("13")
	assert.False(t, ok)

	saved := sprints.Iterations()
	sprints.ItemMoved(&models.WorkItem{StoryPoints: 5}, "", "12")
	it, _ := sprints.Get(12)
	assert.Equal(t, 3, it.Items)
	assert.Equal(t, 13, it.Points)

	sprints.Restore(saved)
	it, _ = sprints.Get(12)
	assert.Equal(t, 2, it.Items)
	assert.Equal(t, 8, it.Points)
}
