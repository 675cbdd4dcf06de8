package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mota-project/microservices/planning-service/board"
	"mota-project/microservices/planning-service/models"
)

var (
	kanban  = BoardKey{Project: "frontend", View: models.ViewKanban}
	backlog = BoardKey{Project: "frontend", View: models.ViewBacklog}
)

func ptr[T any](v T) *T {
	return &v
}

func kanbanCard(id int64, status string, order int) *models.WorkItem {
	return &models.WorkItem{ID: id, Title: "Card", Type: models.TypeTask, Priority: models.PriorityMedium,
		Project: "frontend", Status: status, Order: order}
}

func backlogEntry(id int64, iteration *int64, order, points int) *models.WorkItem {
	return &models.WorkItem{ID: id, Title: "Story", Type: models.TypeRequirement, Priority: models.PriorityHigh,
		Project: "frontend", IterationID: iteration, Order: order, StoryPoints: points}
}

type fixture struct {
	svc     *BoardService
	kanban  *fakeItems
	backlog *fakeItems
	catalog *fakeCatalog
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		kanban: newFakeItems(
			kanbanCard(1, "pending", 1),
			kanbanCard(2, "pending", 2),
			kanbanCard(3, "processing", 1),
		),
		backlog: newFakeItems(
			backlogEntry(10, nil, 1, 3),
			backlogEntry(11, nil, 2, 5),
			backlogEntry(12, ptr[int64](12), 1, 8),
		),
		catalog: newFakeCatalog(),
		sink:    &recordingSink{},
	}
	f.svc = NewBoardService(f.backlog, f.kanban, f.catalog, testCatalogFile(), f.sink)
	require.NoError(t, f.svc.Seed(context.Background()))
	return f
}

func ids(items []*models.WorkItem) []int64 {
	return itemIDs(items)
}

func (f *fixture) partition(t *testing.T, key BoardKey, partition string) []*models.WorkItem {
	t.Helper()
	page, err := f.svc.Items(context.Background(), key, board.Filter{Partition: partition})
	require.NoError(t, err)
	return page.Items
}

func TestSeedStoresDefaults(t *testing.T) {
	f := newFixture(t)

	cols, err := f.catalog.ListColumns(context.Background(), "frontend")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "frontend", cols[0].Project)

	its, err := f.catalog.ListIterations(context.Background(), "frontend")
	require.NoError(t, err)
	assert.Len(t, its, 2)

	// A second seed leaves stored configuration alone.
	_, err = f.svc.UpdateColumn(context.Background(), "frontend", "done", ColumnUpdate{Name: ptr("Shipped")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Seed(context.Background()))
	cols, _ = f.catalog.ListColumns(context.Background(), "frontend")
	assert.Equal(t, "Shipped", cols[2].Name)
}

func TestMoveRejectedAtWIPLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Move(ctx, kanban, 2, "processing")
	require.ErrorIs(t, err, board.ErrWIPLimitExceeded)
	assert.Equal(t, board.OutcomeRejected, res.Outcome)

	assert.Empty(t, f.kanban.reorders)
	assert.Equal(t, []int64{1, 2}, ids(f.partition(t, kanban, "pending")))
	assert.Contains(t, f.sink.messages(), "Processing has reached its WIP limit of 1")
}

func TestMoveBelowWIPLimitPersistsBothPartitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.UpdateColumn(ctx, "frontend", "processing", ColumnUpdate{WIPLimit: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, view.WIPLimit)
	assert.Equal(t, models.WIPOk, view.WIPStatus)

	res, err := f.svc.Move(ctx, kanban, 2, "processing")
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeMoved, res.Outcome)

	processing := f.partition(t, kanban, "processing")
	require.Len(t, processing, 2)
	assert.Equal(t, int64(2), processing[1].ID)
	assert.Equal(t, 2, processing[1].Order)

	pending := f.partition(t, kanban, "pending")
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Order)

	assert.Equal(t, []int64{1}, f.kanban.reorders["pending"])
	assert.Equal(t, []int64{3, 2}, f.kanban.reorders["processing"])
}

func TestPersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Items(ctx, kanban, board.Filter{})
	require.NoError(t, err)

	f.kanban.setFail(true)
	_, err = f.svc.Move(ctx, kanban, 1, "done")
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, errStoreDown)

	assert.Equal(t, []int64{1, 2}, ids(f.partition(t, kanban, "pending")))
	assert.Empty(t, f.partition(t, kanban, "done"))

	notes, err := f.svc.Notifications(ctx, kanban)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	assert.Equal(t, "Change could not be saved", notes[0].Message)
	assert.NotContains(t, f.sink.messages(), "Moved to Done")

	f.kanban.setFail(false)
	_, err = f.svc.Move(ctx, kanban, 1, "done")
	require.NoError(t, err)
	assert.Contains(t, f.sink.messages(), "Moved to Done")
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Reorder(ctx, kanban, 2, "pending", []int64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeReordered, res.Outcome)
	assert.Equal(t, []int64{2, 1}, ids(f.partition(t, kanban, "pending")))
	assert.Equal(t, []int64{2, 1}, f.kanban.reorders["pending"])

	_, err = f.svc.Reorder(ctx, kanban, 3, "pending", []int64{3, 1})
	require.ErrorIs(t, err, board.ErrInvalidSequence)
	_, err = f.svc.Reorder(ctx, kanban, 1, "pending", []int64{1, 3})
	require.ErrorIs(t, err, board.ErrInvalidSequence)
}

func TestDragSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.BeginDrag(ctx, kanban, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "dragging", st.State)
	assert.Equal(t, []int64{1, 2}, st.Preview)

	_, err = f.svc.BeginDrag(ctx, kanban, 2, nil)
	require.ErrorIs(t, err, board.ErrDragInProgress)

	st, err = f.svc.HoverDrag(ctx, kanban, []board.Box{{Top: 0, Height: 40}}, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, []int64{2, 1}, st.Preview)

	res, err := f.svc.DropDrag(ctx, kanban, board.Target{Partition: "pending"})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeReordered, res.Outcome)
	assert.Equal(t, []int64{2, 1}, f.kanban.reorders["pending"])

	_, err = f.svc.DropDrag(ctx, kanban, board.Target{Partition: "pending"})
	require.ErrorIs(t, err, board.ErrNotDragging)

	_, err = f.svc.BeginDrag(ctx, kanban, 1, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelDrag(ctx, kanban))
	_, err = f.svc.BeginDrag(ctx, kanban, 1, nil)
	require.NoError(t, err)
}

func TestBulkMoveUpdatesIterationCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.BulkMove(ctx, backlog, []int64{10, 11, 99}, board.IterationKey(13))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, res.Applied)
	assert.Equal(t, []int64{99}, res.Missing)

	its, err := f.svc.Iterations(ctx, "frontend")
	require.NoError(t, err)
	require.Len(t, its, 2)
	assert.Equal(t, 1, its[0].Items)
	assert.Equal(t, 8, its[0].Points)
	assert.Equal(t, 2, its[1].Items)
	assert.Equal(t, 8, its[1].Points)

	stored, _ := f.catalog.ListIterations(ctx, "frontend")
	assert.Equal(t, 2, stored[1].Items)
	assert.Equal(t, []int64{10, 11}, f.backlog.reorders["13"])
	assert.Empty(t, f.partition(t, backlog, board.Unplanned))
}

func TestBulkAssignAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.BulkAssign(ctx, kanban, []int64{1, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, res.Applied)
	assert.ElementsMatch(t, []int64{1, 3}, f.kanban.updates)

	lanes, err := f.svc.Swimlanes(ctx, kanban, board.Filter{}, board.SwimlaneAssignee)
	require.NoError(t, err)
	require.Len(t, lanes, 2)
	assert.Equal(t, "Marko", lanes[0].Label)
	assert.Equal(t, board.Unassigned, lanes[1].Key)

	res, err = f.svc.BulkDelete(ctx, kanban, []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, res.Applied)
	assert.ElementsMatch(t, []int64{1, 3}, f.kanban.deleted)

	pending := f.partition(t, kanban, "pending")
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Order)
}

func TestCreateCopyUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, kanban, &models.WorkItem{Title: "New card", Type: models.TypeBug, Priority: models.PriorityLow})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 3, created.Order)
	assert.Equal(t, "frontend", created.Project)

	dup, err := f.svc.CopyItem(ctx, kanban, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), dup.ID)
	assert.Equal(t, []int64{4, 5}, f.kanban.inserted)

	updated, err := f.svc.UpdateItem(ctx, kanban, 5, models.ItemPatch{StoryPoints: ptr(8)})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.StoryPoints)

	require.NoError(t, f.svc.DeleteItem(ctx, kanban, 4))
	assert.Equal(t, []int64{1, 2, 5}, ids(f.partition(t, kanban, "pending")))
	assert.Equal(t, []int64{1, 2, 5}, f.kanban.reorders["pending"])

	require.ErrorIs(t, f.svc.DeleteItem(ctx, kanban, 4), board.ErrItemNotFound)

	_, err = f.svc.CopyItem(ctx, kanban, 3)
	require.ErrorIs(t, err, board.ErrWIPLimitExceeded)
}

func TestColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	views, err := f.svc.Columns(ctx, "frontend")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, models.WIPAt, views[1].WIPStatus)

	views, err = f.svc.ReorderColumns(ctx, "frontend", []string{"done", "processing", "pending"})
	require.NoError(t, err)
	assert.Equal(t, "done", views[0].ID)
	stored, _ := f.catalog.ListColumns(ctx, "frontend")
	assert.Equal(t, "done", stored[0].ID)

	view, err := f.svc.UpdateColumn(ctx, "frontend", "done", ColumnUpdate{CycleColor: true})
	require.NoError(t, err)
	assert.Equal(t, models.ColumnPalette[0], view.Color)

	_, err = f.svc.UpdateColumn(ctx, "frontend", "archive", ColumnUpdate{Name: ptr("x")})
	require.ErrorIs(t, err, board.ErrUnknownColumn)

	removed, err := f.svc.ClearColumn(ctx, "frontend", "pending")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, removed)
	assert.ElementsMatch(t, []int64{1, 2}, f.kanban.deleted)
	assert.Empty(t, f.partition(t, kanban, "pending"))
}

func TestRecountIterations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	its, err := f.svc.RecountIterations(ctx, "frontend")
	require.NoError(t, err)
	require.Len(t, its, 2)
	assert.Equal(t, 1, its[0].Items)
	assert.Equal(t, 8, its[0].Points)
}

func TestUnknownBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Items(ctx, BoardKey{Project: "mobile", View: models.ViewKanban}, board.Filter{})
	require.ErrorIs(t, err, ErrUnknownProject)

	_, err = f.svc.Items(ctx, BoardKey{Project: "frontend", View: "gantt"}, board.Filter{})
	require.ErrorIs(t, err, ErrUnknownView)
}

func TestItemsReturnsCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.svc.Items(ctx, kanban, board.Filter{Search: "#3"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	page.Items[0].Status = "done"

	assert.Len(t, f.partition(t, kanban, "processing"), 1)
}

func TestFailedColumnUpdateReportsNoSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateColumn(ctx, "frontend", "processing", ColumnUpdate{Name: ptr("Doing"), WIPLimit: ptr(-1)})
	require.ErrorIs(t, err, board.ErrInvalidWIPLimit)

	views, err := f.svc.Columns(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, "Processing", views[1].Name)
	assert.Equal(t, 1, views[1].WIPLimit)

	notes, err := f.svc.Notifications(ctx, kanban)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.NotContains(t, f.sink.messages(), "Column renamed to Doing")
}

func TestBulkDeleteOfDraggedItemEndsGesture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BeginDrag(ctx, kanban, 1, nil)
	require.NoError(t, err)
	res, err := f.svc.BulkDelete(ctx, kanban, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Applied)

	_, err = f.svc.DropDrag(ctx, kanban, board.Target{Partition: "pending"})
	require.ErrorIs(t, err, board.ErrNotDragging)

	moved, err := f.svc.Move(ctx, kanban, 2, "done")
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeMoved, moved.Outcome)

	_, err = f.svc.BeginDrag(ctx, kanban, 3, nil)
	require.NoError(t, err)
	_, err = f.svc.ClearColumn(ctx, "frontend", "processing")
	require.NoError(t, err)
	_, err = f.svc.Reorder(ctx, kanban, 2, "done", []int64{2})
	require.NoError(t, err)
}

func TestUrgentPriorityOnlyOnBacklog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, kanban, &models.WorkItem{Title: "Hotfix", Type: models.TypeBug, Priority: models.PriorityUrgent})
	require.ErrorIs(t, err, board.ErrInvalidPriority)
	assert.Empty(t, f.kanban.inserted)

	_, err = f.svc.UpdateItem(ctx, kanban, 1, models.ItemPatch{Priority: ptr(models.PriorityUrgent)})
	require.ErrorIs(t, err, board.ErrInvalidPriority)

	created, err := f.svc.CreateItem(ctx, backlog, &models.WorkItem{Title: "Hotfix", Type: models.TypeBug, Priority: models.PriorityUrgent})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, created.Priority)
}

func TestIterationsAreScopedToProject(t *testing.T) {
	ref := testCatalogFile()
	ref.Projects = append(ref.Projects, models.Project{ID: "backend", Name: "Backend"})
	ref.Iterations["backend"] = []models.Iteration{
		{ID: 12, Project: "backend", Name: "API Sprint 12", Status: models.IterationActive},
	}
	backendEntry := backlogEntry(30, ptr[int64](12), 1, 2)
	backendEntry.Project = "backend"

	catalog := newFakeCatalog()
	items := newFakeItems(backlogEntry(10, nil, 1, 3), backlogEntry(12, ptr[int64](12), 1, 8), backendEntry)
	svc := NewBoardService(items, newFakeItems(), catalog, ref, &recordingSink{})
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx))

	frontend, err := catalog.ListIterations(ctx, "frontend")
	require.NoError(t, err)
	require.Len(t, frontend, 2)
	backend, err := catalog.ListIterations(ctx, "backend")
	require.NoError(t, err)
	require.Len(t, backend, 1)
	assert.Equal(t, "API Sprint 12", backend[0].Name)

	_, err = svc.Move(ctx, backlog, 10, board.IterationKey(12))
	require.NoError(t, err)

	its, err := svc.Iterations(ctx, "backend")
	require.NoError(t, err)
	require.Len(t, its, 1)
	assert.Equal(t, 1, its[0].Items)
	assert.Equal(t, 2, its[0].Points)

	stored, _ := catalog.ListIterations(ctx, "frontend")
	assert.Equal(t, "Sprint 12", stored[0].Name)
	assert.Equal(t, 2, stored[0].Items)
	assert.Equal(t, 11, stored[0].Points)
	stored, _ = catalog.ListIterations(ctx, "backend")
	assert.Equal(t, "API Sprint 12", stored[0].Name)
}

func TestUpdateItemStoresTrimmedTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	updated, err := f.svc.UpdateItem(ctx, kanban, 1, models.ItemPatch{Title: ptr("  Login page  ")})
	require.NoError(t, err)
	assert.Equal(t, "Login page", updated.Title)
	require.NotNil(t, f.kanban.patches[1].Title)
	assert.Equal(t, "Login page", *f.kanban.patches[1].Title)
}

func TestAssigneeMustBeMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateItem(ctx, kanban, 1, models.ItemPatch{AssigneeID: ptr[int64](99)})
	require.ErrorIs(t, err, ErrUnknownMember)
	_, err = f.svc.BulkAssign(ctx, kanban, []int64{1, 2}, 99)
	require.ErrorIs(t, err, ErrUnknownMember)
	_, err = f.svc.CreateItem(ctx, kanban, &models.WorkItem{Title: "Card", Type: models.TypeTask,
		Priority: models.PriorityLow, AssigneeID: ptr[int64](99)})
	require.ErrorIs(t, err, ErrUnknownMember)
	assert.Empty(t, f.kanban.updates)

	updated, err := f.svc.UpdateItem(ctx, kanban, 1, models.ItemPatch{AssigneeID: ptr[int64](1)})
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, int64(1), *updated.AssigneeID)

	updated, err = f.svc.UpdateItem(ctx, kanban, 1, models.ItemPatch{AssigneeID: ptr[int64](0)})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
}
