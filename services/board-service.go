package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"mota-project/microservices/planning-service/board"
	"mota-project/microservices/planning-service/logging"
	"mota-project/microservices/planning-service/metrics"
	"mota-project/microservices/planning-service/models"
	"mota-project/microservices/planning-service/repositories"
)

var (
	ErrUnknownProject = errors.New("unknown project")
	ErrUnknownView    = errors.New("unknown view")
	ErrUnknownMember  = errors.New("unknown member")
	// ErrPersistence wraps store failures; the board is rolled back when it is returned.
	ErrPersistence = errors.New("change could not be saved")
)

// bulkWriters bounds the concurrent per-item writes of a bulk edit.
const bulkWriters = 8

// BoardKey identifies one board: a project seen through one view.
type BoardKey struct {
	Project string
	View    models.View
}

func (k BoardKey) String() string {
	return k.Project + "/" + string(k.View)
}

type boardState struct {
	mu         sync.Mutex
	key        BoardKey
	coll       *board.Collection
	ctrl       *board.Controller
	columns    *board.ColumnSet
	iterations *board.IterationSet
	notes      *MemoryNotifier
}

type boardSnapshot struct {
	items      []*models.WorkItem
	columns    []models.Column
	iterations []models.Iteration
}

func (b *boardState) snapshot() boardSnapshot {
	snap := boardSnapshot{items: b.coll.Snapshot()}
	if b.columns != nil {
		snap.columns = b.columns.Columns()
	}
	if b.iterations != nil {
		snap.iterations = b.iterations.Iterations()
	}
	return snap
}

func (b *boardState) restore(snap boardSnapshot) {
	b.coll.Restore(snap.items)
	if b.columns != nil {
		b.columns.Restore(snap.columns)
	}
	if b.iterations != nil {
		b.iterations.Restore(snap.iterations)
	}
}

// BoardService owns every board held in memory and keeps them in step with the store.
type BoardService struct {
	items   map[models.View]repositories.ItemRepository
	catalog repositories.CatalogRepository
	ref     *repositories.CatalogFile
	sink    NotificationSink

	mu     sync.Mutex
	boards map[BoardKey]*boardState
}

func NewBoardService(backlog, kanban repositories.ItemRepository, catalog repositories.CatalogRepository, ref *repositories.CatalogFile, sink NotificationSink) *BoardService {
	if sink == nil {
		sink = LogSink{}
	}
	return &BoardService{
		items: map[models.View]repositories.ItemRepository{
			models.ViewBacklog: backlog,
			models.ViewKanban:  kanban,
		},
		catalog: catalog,
		ref:     ref,
		sink:    sink,
		boards:  make(map[BoardKey]*boardState),
	}
}

func (s *BoardService) Members() []models.Member {
	return slices.Clone(s.ref.Members)
}

func (s *BoardService) Projects() []models.Project {
	return slices.Clone(s.ref.Projects)
}

// Seed stores the default columns and the iterations of every project that
// has none yet.
func (s *BoardService) Seed(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range s.ref.Projects {
		project := p.ID
		g.Go(func() error {
			cols, err := s.catalog.ListColumns(gctx, project)
			if err != nil {
				return err
			}
			if len(cols) == 0 {
				if err := s.catalog.SaveColumns(gctx, project, s.ref.ColumnsFor(project)); err != nil {
					return err
				}
			}
			its, err := s.catalog.ListIterations(gctx, project)
			if err != nil {
				return err
			}
			if len(its) > 0 {
				return nil
			}
			for _, it := range s.ref.Iterations[project] {
				if err := s.catalog.SaveIteration(gctx, it); err != nil {
					return err
				}
			}
			logging.Logger.Infof("Event ID: CATALOG_SEEDED, Description: Seeded board configuration for project %s", project)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

// checkAssignee rejects assignees missing from the member directory. 0 clears
// the assignee and is always accepted.
func (s *BoardService) checkAssignee(id int64) error {
	if id == 0 || len(s.ref.Members) == 0 {
		return nil
	}
	if slices.ContainsFunc(s.ref.Members, func(m models.Member) bool { return m.ID == id }) {
		return nil
	}
	return fmt.Errorf("assignee %d: %w", id, ErrUnknownMember)
}

func (s *BoardService) validate(key BoardKey) error {
	if !key.View.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownView, key.View)
	}
	if len(s.ref.Projects) == 0 {
		return nil
	}
	for _, p := range s.ref.Projects {
		if p.ID == key.Project {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownProject, key.Project)
}

func (s *BoardService) board(ctx context.Context, key BoardKey) (*boardState, error) {
	if err := s.validate(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	b, ok := s.boards[key]
	s.mu.Unlock()
	if ok {
		return b, nil
	}

	loaded, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.boards[key]; ok {
		return b, nil
	}
	s.boards[key] = loaded
	metrics.LoadedBoards.Set(float64(len(s.boards)))
	logging.Logger.Infof("Event ID: BOARD_LOADED, Description: Loaded board %s with %d items", key, loaded.coll.Len())
	return loaded, nil
}

func (s *BoardService) load(ctx context.Context, key BoardKey) (*boardState, error) {
	var (
		items      []*models.WorkItem
		columns    []models.Column
		iterations []models.Iteration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.items[key.View].ListItems(gctx, key.Project)
		return err
	})
	g.Go(func() error {
		var err error
		if key.View == models.ViewKanban {
			columns, err = s.catalog.ListColumns(gctx, key.Project)
		} else {
			iterations, err = s.catalog.ListIterations(gctx, key.Project)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load board %s: %w: %w", key, ErrPersistence, err)
	}

	coll, err := board.NewCollection(board.AxisFor(key.View), items)
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", key, err)
	}
	b := &boardState{key: key, coll: coll, notes: NewMemoryNotifier(key.String())}
	if key.View == models.ViewKanban {
		if len(columns) == 0 {
			columns = s.ref.ColumnsFor(key.Project)
		}
		b.columns = board.NewColumnSet(columns)
		b.ctrl = board.NewController(coll, b.columns, b.notes)
	} else {
		b.iterations = board.NewIterationSet(iterations)
		b.iterations.Recount(coll.Items())
		b.ctrl = board.NewController(coll, b.iterations, b.notes, b.iterations)
	}
	return b, nil
}

// apply runs a mutation under the board lock and persists it. A failed
// mutation or a failed write restores the board as it was before.
func (s *BoardService) apply(ctx context.Context, key BoardKey, op string, mutate func(*boardState) error, persist func(context.Context, *boardState) error) error {
	b, err := s.board(ctx, key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	snap := b.snapshot()
	if err := mutate(b); err != nil {
		b.restore(snap)
		b.notes.Rollback()
		notes := b.notes.Commit()
		b.mu.Unlock()
		s.flush(ctx, notes)
		return err
	}
	err = persist(ctx, b)
	if err == nil {
		err = s.saveIterations(ctx, b, snap.iterations)
	}
	if err != nil {
		b.restore(snap)
		b.notes.Discard()
		b.notes.Notify(models.LevelWarning, "Change could not be saved")
		notes := b.notes.Commit()
		b.mu.Unlock()
		s.flush(ctx, notes)
		metrics.PersistFailures.WithLabelValues(op).Inc()
		logging.Logger.Errorf("Event ID: PERSIST_FAILED, Description: %s on board %s rolled back: %v", op, key, err)
		return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
	notes := b.notes.Commit()
	b.mu.Unlock()
	s.flush(ctx, notes)
	return nil
}

func (s *BoardService) flush(ctx context.Context, notes []models.Notification) {
	for _, note := range notes {
		if err := s.sink.Send(ctx, note); err != nil {
			logging.Logger.Warnf("Event ID: NOTIFICATION_DROPPED, Description: %v", err)
		}
	}
}

// saveIterations writes the iterations whose counters differ from before.
func (s *BoardService) saveIterations(ctx context.Context, b *boardState, before []models.Iteration) error {
	if b.iterations == nil {
		return nil
	}
	for _, it := range b.iterations.Iterations() {
		i := slices.IndexFunc(before, func(old models.Iteration) bool { return old.ID == it.ID })
		if i >= 0 && before[i] == it {
			continue
		}
		if err := s.catalog.SaveIteration(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoardService) savePartitions(ctx context.Context, b *boardState, keys ...string) error {
	repo := s.items[b.key.View]
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := repo.Reorder(ctx, b.key.Project, key, itemIDs(b.coll.Partition(key))); err != nil {
			return err
		}
	}
	return nil
}

// view runs a read under the board lock.
func (s *BoardService) view(ctx context.Context, key BoardKey, read func(*boardState) error) error {
	b, err := s.board(ctx, key)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return read(b)
}

// ItemsPage is a filtered view with its totals.
type ItemsPage struct {
	Items  []*models.WorkItem `json:"items"`
	Count  int                `json:"count"`
	Points int                `json:"points"`
}

func (s *BoardService) Items(ctx context.Context, key BoardKey, f board.Filter) (ItemsPage, error) {
	var page ItemsPage
	err := s.view(ctx, key, func(b *boardState) error {
		page.Items = cloneItems(board.Visible(b.coll.Axis(), b.coll.Items(), f))
		page.Count, page.Points = board.Stats(page.Items)
		return nil
	})
	return page, err
}

func (s *BoardService) Swimlanes(ctx context.Context, key BoardKey, f board.Filter, mode board.SwimlaneMode) ([]board.Lane, error) {
	var lanes []board.Lane
	err := s.view(ctx, key, func(b *boardState) error {
		visible := cloneItems(board.Visible(b.coll.Axis(), b.coll.Items(), f))
		lanes = board.Swimlanes(visible, mode, s.ref.Members)
		return nil
	})
	return lanes, err
}

func (s *BoardService) CreateItem(ctx context.Context, key BoardKey, item *models.WorkItem) (*models.WorkItem, error) {
	if item.AssigneeID != nil {
		if err := s.checkAssignee(*item.AssigneeID); err != nil {
			return nil, err
		}
	}
	var created *models.WorkItem
	err := s.apply(ctx, key, "create item",
		func(b *boardState) error {
			item.Project = key.Project
			if b.columns != nil && item.Status == "" {
				if cols := b.columns.Columns(); len(cols) > 0 {
					item.Status = cols[0].ID
				}
			}
			if err := b.ctrl.Create(item); err != nil {
				return err
			}
			created = item.Clone()
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			return s.items[key.View].InsertItem(ctx, created)
		})
	if err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: ITEM_CREATED, Description: Created item %d on board %s", created.ID, key)
	return created, nil
}

func (s *BoardService) UpdateItem(ctx context.Context, key BoardKey, id int64, patch models.ItemPatch) (*models.WorkItem, error) {
	if patch.AssigneeID != nil {
		if err := s.checkAssignee(*patch.AssigneeID); err != nil {
			return nil, err
		}
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	var updated *models.WorkItem
	err := s.apply(ctx, key, "update item",
		func(b *boardState) error {
			item, err := b.ctrl.Update(id, patch)
			if err != nil {
				return err
			}
			updated = item.Clone()
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			return s.items[key.View].UpdateItem(ctx, key.Project, id, patch)
		})
	return updated, err
}

func (s *BoardService) CopyItem(ctx context.Context, key BoardKey, id int64) (*models.WorkItem, error) {
	var dup *models.WorkItem
	err := s.apply(ctx, key, "copy item",
		func(b *boardState) error {
			item, err := b.ctrl.Copy(id)
			if err != nil {
				return err
			}
			dup = item.Clone()
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			return s.items[key.View].InsertItem(ctx, dup)
		})
	return dup, err
}

func (s *BoardService) DeleteItem(ctx context.Context, key BoardKey, id int64) error {
	var from string
	return s.apply(ctx, key, "delete item",
		func(b *boardState) error {
			removed, err := b.ctrl.Delete(id)
			if err != nil {
				return err
			}
			from = b.coll.Axis().Key(removed)
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			if err := s.items[key.View].DeleteItems(ctx, key.Project, []int64{id}); err != nil {
				return err
			}
			return s.savePartitions(ctx, b, from)
		})
}

// Reorder applies a finished drag inside one partition. orderedIDs is the
// rendered sequence after the drop and may be a filtered subset.
func (s *BoardService) Reorder(ctx context.Context, key BoardKey, itemID int64, partition string, orderedIDs []int64) (board.Result, error) {
	var res board.Result
	err := s.apply(ctx, key, "reorder",
		func(b *boardState) error {
			item, err := b.coll.Get(itemID)
			if err != nil {
				return err
			}
			if b.coll.Axis().Key(item) != partition {
				return fmt.Errorf("%w: item %d is not in partition %q", board.ErrInvalidSequence, itemID, partition)
			}
			if err := b.ctrl.Begin(itemID, nil); err != nil {
				return err
			}
			res, err = b.ctrl.Drop(board.Target{Partition: partition, Sequence: orderedIDs})
			return err
		},
		func(ctx context.Context, b *boardState) error {
			return s.savePartitions(ctx, b, partition)
		})
	if err == nil {
		metrics.Reorders.WithLabelValues(string(key.View)).Inc()
	}
	return res, err
}

// Move transfers an item to another partition, as the card menu does.
func (s *BoardService) Move(ctx context.Context, key BoardKey, id int64, to string) (board.Result, error) {
	var res board.Result
	err := s.apply(ctx, key, "move",
		func(b *boardState) error {
			var err error
			res, err = b.ctrl.Move(id, to)
			return err
		},
		func(ctx context.Context, b *boardState) error {
			if !res.Changed() {
				return nil
			}
			return s.savePartitions(ctx, b, res.From, res.To)
		})
	s.countTransfer(key, res, err)
	return res, err
}

func (s *BoardService) countTransfer(key BoardKey, res board.Result, err error) {
	switch {
	case errors.Is(err, board.ErrWIPLimitExceeded):
		metrics.Transfers.WithLabelValues(string(key.View), string(board.OutcomeRejected)).Inc()
	case err == nil && res.Outcome == board.OutcomeMoved:
		metrics.Transfers.WithLabelValues(string(key.View), string(board.OutcomeMoved)).Inc()
	case err == nil && res.Outcome == board.OutcomeReordered:
		metrics.Reorders.WithLabelValues(string(key.View)).Inc()
	}
}

// DragState describes the gesture in progress on a board.
type DragState struct {
	State   string  `json:"state"`
	ItemID  int64   `json:"itemId,omitempty"`
	Index   int     `json:"index"`
	Preview []int64 `json:"preview,omitempty"`
}

func dragState(ctrl *board.Controller, index int) DragState {
	id, _ := ctrl.Dragged()
	return DragState{State: ctrl.State().String(), ItemID: id, Index: index, Preview: ctrl.Preview()}
}

// BeginDrag starts a gesture; visible is the rendered sequence of the item's partition.
func (s *BoardService) BeginDrag(ctx context.Context, key BoardKey, id int64, visible []int64) (DragState, error) {
	var st DragState
	err := s.view(ctx, key, func(b *boardState) error {
		if err := b.ctrl.Begin(id, visible); err != nil {
			return err
		}
		st = dragState(b.ctrl, slices.Index(b.ctrl.Preview(), id))
		return nil
	})
	return st, err
}

// HoverDrag moves the placeholder of the gesture in progress. Nothing is persisted.
func (s *BoardService) HoverDrag(ctx context.Context, key BoardKey, boxes []board.Box, y float64) (DragState, error) {
	var st DragState
	err := s.view(ctx, key, func(b *boardState) error {
		index, err := b.ctrl.Hover(boxes, y)
		if err != nil {
			return err
		}
		st = dragState(b.ctrl, index)
		return nil
	})
	return st, err
}

// DropDrag ends the gesture in progress and persists its outcome.
func (s *BoardService) DropDrag(ctx context.Context, key BoardKey, target board.Target) (board.Result, error) {
	var res board.Result
	err := s.apply(ctx, key, "drop",
		func(b *boardState) error {
			var err error
			res, err = b.ctrl.Drop(target)
			return err
		},
		func(ctx context.Context, b *boardState) error {
			if !res.Changed() {
				return nil
			}
			if res.From == res.To {
				return s.savePartitions(ctx, b, res.From)
			}
			return s.savePartitions(ctx, b, res.From, res.To)
		})
	s.countTransfer(key, res, err)
	return res, err
}

func (s *BoardService) CancelDrag(ctx context.Context, key BoardKey) error {
	return s.view(ctx, key, func(b *boardState) error {
		b.ctrl.Cancel()
		return nil
	})
}

// selectAll replaces the selection with the known ids and returns the unknown ones.
func selectAll(ctrl *board.Controller, ids []int64) []int64 {
	ctrl.ClearSelection()
	var missing []int64
	for _, id := range ids {
		if err := ctrl.Select(id); err != nil {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *BoardService) BulkMove(ctx context.Context, key BoardKey, ids []int64, to string) (board.BulkResult, error) {
	var res board.BulkResult
	err := s.apply(ctx, key, "bulk move",
		func(b *boardState) error {
			missing := selectAll(b.ctrl, ids)
			var err error
			res, err = b.ctrl.BulkMove(to)
			res.Missing = append(res.Missing, missing...)
			return err
		},
		func(ctx context.Context, b *boardState) error {
			return s.savePartitions(ctx, b, res.Touched...)
		})
	if err == nil {
		metrics.Transfers.WithLabelValues(string(key.View), string(board.OutcomeMoved)).Add(float64(len(res.Applied)))
		metrics.Transfers.WithLabelValues(string(key.View), string(board.OutcomeRejected)).Add(float64(len(res.Rejected)))
	}
	return res, err
}

// BulkAssign sets the assignee of many items; an assignee of 0 clears it.
func (s *BoardService) BulkAssign(ctx context.Context, key BoardKey, ids []int64, assignee int64) (board.BulkResult, error) {
	if err := s.checkAssignee(assignee); err != nil {
		return board.BulkResult{}, err
	}
	var res board.BulkResult
	err := s.apply(ctx, key, "bulk assign",
		func(b *boardState) error {
			missing := selectAll(b.ctrl, ids)
			res = b.ctrl.BulkAssign(assignee)
			res.Missing = append(res.Missing, missing...)
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			patch := models.ItemPatch{AssigneeID: &assignee}
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(bulkWriters)
			for _, id := range res.Applied {
				g.Go(func() error {
					return s.items[key.View].UpdateItem(gctx, key.Project, id, patch)
				})
			}
			return g.Wait()
		})
	return res, err
}

func (s *BoardService) BulkDelete(ctx context.Context, key BoardKey, ids []int64) (board.BulkResult, error) {
	var res board.BulkResult
	err := s.apply(ctx, key, "bulk delete",
		func(b *boardState) error {
			missing := selectAll(b.ctrl, ids)
			res = b.ctrl.BulkDelete()
			res.Missing = append(res.Missing, missing...)
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			if err := s.items[key.View].DeleteItems(ctx, key.Project, res.Applied); err != nil {
				return err
			}
			return s.savePartitions(ctx, b, res.Touched...)
		})
	return res, err
}

func (s *BoardService) Notifications(ctx context.Context, key BoardKey) ([]models.Notification, error) {
	var notes []models.Notification
	err := s.view(ctx, key, func(b *boardState) error {
		notes = b.notes.History()
		return nil
	})
	return notes, err
}

func kanbanKey(project string) BoardKey {
	return BoardKey{Project: project, View: models.ViewKanban}
}

func backlogKey(project string) BoardKey {
	return BoardKey{Project: project, View: models.ViewBacklog}
}

func (s *BoardService) Columns(ctx context.Context, project string) ([]models.ColumnView, error) {
	var views []models.ColumnView
	err := s.view(ctx, kanbanKey(project), func(b *boardState) error {
		views = b.columns.Views(b.coll)
		return nil
	})
	return views, err
}

// ColumnUpdate carries the settings menu edits of one column.
type ColumnUpdate struct {
	Name       *string `json:"name,omitempty"`
	WIPLimit   *int    `json:"wipLimit,omitempty"`
	CycleColor bool    `json:"cycleColor,omitempty"`
}

func (s *BoardService) UpdateColumn(ctx context.Context, project, columnID string, upd ColumnUpdate) (models.ColumnView, error) {
	var view models.ColumnView
	err := s.apply(ctx, kanbanKey(project), "update column",
		func(b *boardState) error {
			var (
				col models.Column
				err error
			)
			if _, ok := b.columns.Lookup(columnID); !ok {
				return fmt.Errorf("column %q: %w", columnID, board.ErrUnknownColumn)
			}
			if upd.Name != nil {
				if col, err = b.columns.Rename(columnID, *upd.Name); err != nil {
					return err
				}
				b.notes.Notify(models.LevelSuccess, "Column renamed to "+col.Name)
			}
			if upd.WIPLimit != nil {
				if col, err = b.columns.SetWIPLimit(columnID, *upd.WIPLimit); err != nil {
					return err
				}
				b.notes.Notify(models.LevelSuccess, fmt.Sprintf("WIP limit of %s set to %d", col.Name, col.WIPLimit))
			}
			if upd.CycleColor {
				if col, err = b.columns.CycleColor(columnID); err != nil {
					return err
				}
			}
			for _, v := range b.columns.Views(b.coll) {
				if v.ID == columnID {
					view = v
				}
			}
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			return s.catalog.SaveColumns(ctx, project, b.columns.Columns())
		})
	return view, err
}

func (s *BoardService) ReorderColumns(ctx context.Context, project string, ids []string) ([]models.ColumnView, error) {
	var views []models.ColumnView
	err := s.apply(ctx, kanbanKey(project), "reorder columns",
		func(b *boardState) error {
			if err := b.columns.Reorder(ids); err != nil {
				return err
			}
			views = b.columns.Views(b.coll)
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			return s.catalog.SaveColumns(ctx, project, b.columns.Columns())
		})
	return views, err
}

// ClearColumn deletes every card in a column and returns their ids.
func (s *BoardService) ClearColumn(ctx context.Context, project, columnID string) ([]int64, error) {
	var removed []int64
	err := s.apply(ctx, kanbanKey(project), "clear column",
		func(b *boardState) error {
			items, err := b.ctrl.ClearPartition(columnID)
			if err != nil {
				return err
			}
			removed = itemIDs(items)
			return nil
		},
		func(ctx context.Context, b *boardState) error {
			return s.items[models.ViewKanban].DeleteItems(ctx, project, removed)
		})
	return removed, err
}

func (s *BoardService) Iterations(ctx context.Context, project string) ([]models.Iteration, error) {
	var its []models.Iteration
	err := s.view(ctx, backlogKey(project), func(b *boardState) error {
		its = b.iterations.Iterations()
		return nil
	})
	return its, err
}

// RecountIterations rebuilds the iteration counters from the backlog items.
func (s *BoardService) RecountIterations(ctx context.Context, project string) ([]models.Iteration, error) {
	var its []models.Iteration
	err := s.apply(ctx, backlogKey(project), "recount iterations",
		func(b *boardState) error {
			b.iterations.Recount(b.coll.Items())
			its = b.iterations.Iterations()
			return nil
		},
		func(context.Context, *boardState) error { return nil })
	return its, err
}

func itemIDs(items []*models.WorkItem) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func cloneItems(items []*models.WorkItem) []*models.WorkItem {
	out := make([]*models.WorkItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
