package board

import (
	"fmt"
	"slices"
	"strings"

	"mota-project/microservices/planning-service/models"
)

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

type Outcome string

const (
	OutcomeReordered Outcome = "reordered"
	OutcomeMoved     Outcome = "moved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeCancelled Outcome = "cancelled"
)

// Result reports what a drop or a move did.
type Result struct {
	Outcome Outcome `json:"outcome"`
	ItemID  int64   `json:"itemId"`
	From    string  `json:"from,omitempty"`
	To      string  `json:"to,omitempty"`
}

// Changed reports whether any order or partition key was written.
func (r Result) Changed() bool {
	return r.Outcome == OutcomeReordered || r.Outcome == OutcomeMoved
}

// BulkResult sorts the selected ids by what happened to them.
type BulkResult struct {
	Applied  []int64 `json:"applied"`
	Skipped  []int64 `json:"skipped"`
	Rejected []int64 `json:"rejected"`
	Missing  []int64 `json:"missing"`
	// Touched lists the partitions whose order changed.
	Touched []string `json:"-"`
}

func (r *BulkResult) touch(key string) {
	if !slices.Contains(r.Touched, key) {
		r.Touched = append(r.Touched, key)
	}
}

// Notifier receives the toasts shown after board actions.
type Notifier interface {
	Notify(level models.NotificationLevel, message string)
}

// TransferObserver is told about every change of partition. from is empty
// for a new item and to is empty for a removed one.
type TransferObserver interface {
	ItemMoved(item *models.WorkItem, from, to string)
}

// Target is where a dragged item was released.
type Target struct {
	// Partition is empty when the item was dropped outside any drop zone.
	Partition string `json:"partition"`
	// Sequence optionally overrides the previewed order for a drop inside the
	// source partition.
	Sequence []int64 `json:"sequence,omitempty"`
}

// Controller turns drag gestures and menu actions into collection mutations
// and enforces WIP limits on every transfer.
type Controller struct {
	coll      *Collection
	catalog   Catalog
	notifier  Notifier
	observers []TransferObserver

	state       State
	dragged     int64
	source      string
	sequence    []int64
	placeholder int

	selected map[int64]struct{}
}

func NewController(coll *Collection, catalog Catalog, notifier Notifier, observers ...TransferObserver) *Controller {
	return &Controller{
		coll:      coll,
		catalog:   catalog,
		notifier:  notifier,
		observers: observers,
		selected:  make(map[int64]struct{}),
	}
}

func (c *Controller) State() State {
	return c.state
}

// Dragged returns the item of the gesture in progress.
func (c *Controller) Dragged() (int64, bool) {
	return c.dragged, c.state == Dragging
}

// Begin starts a gesture on an item. visible is the rendered sequence of the
// item's partition; nil means the whole partition is rendered.
func (c *Controller) Begin(id int64, visible []int64) error {
	if c.state == Dragging {
		return ErrDragInProgress
	}
	item, err := c.coll.Get(id)
	if err != nil {
		return err
	}
	source := c.coll.Axis().Key(item)
	if visible == nil {
		visible = ids(c.coll.Partition(source))
	}
	pos := slices.Index(visible, id)
	if pos < 0 {
		return fmt.Errorf("%w: item %d is not in the rendered sequence", ErrInvalidSequence, id)
	}
	c.state = Dragging
	c.dragged = id
	c.source = source
	c.sequence = slices.Delete(slices.Clone(visible), pos, pos+1)
	c.placeholder = pos
	return nil
}

// Hover moves the placeholder. boxes are the rendered items of the source
// partition without the dragged one. Nothing is written to the collection.
func (c *Controller) Hover(boxes []Box, y float64) (int, error) {
	if c.state != Dragging {
		return 0, ErrNotDragging
	}
	if len(boxes) != len(c.sequence) {
		return 0, fmt.Errorf("%w: %d boxes for %d items", ErrInvalidSequence, len(boxes), len(c.sequence))
	}
	c.placeholder = InsertionIndex(boxes, y)
	return c.placeholder, nil
}

// Preview returns the rendered sequence with the dragged item at the placeholder.
func (c *Controller) Preview() []int64 {
	if c.state != Dragging {
		return nil
	}
	return slices.Insert(slices.Clone(c.sequence), c.placeholder, c.dragged)
}

// Drop ends the gesture. A drop inside the source partition renumbers it; a
// drop on another partition transfers the item unless that would exceed the
// destination's WIP limit.
func (c *Controller) Drop(t Target) (Result, error) {
	if c.state != Dragging {
		return Result{}, ErrNotDragging
	}
	id, source, preview := c.dragged, c.source, c.Preview()
	c.reset()

	switch t.Partition {
	case "":
		return Result{Outcome: OutcomeCancelled, ItemID: id, From: source}, nil
	case source:
		seq := t.Sequence
		if len(seq) == 0 {
			seq = preview
		}
		if err := c.coll.Reindex(source, seq); err != nil {
			return Result{}, fmt.Errorf("reorder %q: %w", source, err)
		}
		c.notify(models.LevelSuccess, "Priority order updated")
		return Result{Outcome: OutcomeReordered, ItemID: id, From: source, To: source}, nil
	}
	return c.transfer(id, t.Partition)
}

// Cancel abandons the gesture without touching the collection.
func (c *Controller) Cancel() {
	c.reset()
}

// release abandons the gesture when its item is deleted or moved by another action.
func (c *Controller) release(id int64) {
	if c.state == Dragging && c.dragged == id {
		c.reset()
	}
}

func (c *Controller) reset() {
	c.state = Idle
	c.dragged = 0
	c.source = ""
	c.sequence = nil
	c.placeholder = 0
}

// Move transfers an item without a gesture, as the card menu does.
func (c *Controller) Move(id int64, to string) (Result, error) {
	if c.state == Dragging {
		return Result{}, ErrDragInProgress
	}
	return c.transfer(id, to)
}

func (c *Controller) transfer(id int64, to string) (Result, error) {
	item, err := c.coll.Get(id)
	if err != nil {
		return Result{}, err
	}
	from := c.coll.Axis().Key(item)
	if from == to {
		return Result{Outcome: OutcomeUnchanged, ItemID: id, From: from, To: to}, nil
	}
	info, ok := c.catalog.Lookup(to)
	if !ok {
		return Result{}, fmt.Errorf("move item %d: %w: %q", id, ErrUnknownPartition, to)
	}
	if c.full(info, to) {
		c.notify(models.LevelWarning, fmt.Sprintf("%s has reached its WIP limit of %d", info.Name, info.WIPLimit))
		return Result{Outcome: OutcomeRejected, ItemID: id, From: from, To: to},
			fmt.Errorf("move item %d to %q: %w", id, to, ErrWIPLimitExceeded)
	}
	if _, err := c.coll.MovePartition(id, to); err != nil {
		return Result{}, err
	}
	c.coll.ReindexPartition(to)
	c.observe(item, from, to)
	c.notify(models.LevelSuccess, "Moved to "+info.Name)
	return Result{Outcome: OutcomeMoved, ItemID: id, From: from, To: to}, nil
}

func (c *Controller) full(info PartitionInfo, key string) bool {
	return info.WIPLimit > 0 && c.coll.Count(key) >= info.WIPLimit
}

// Create validates a new item and appends it to its partition. A zero id is
// replaced by the next free one.
func (c *Controller) Create(item *models.WorkItem) error {
	if err := c.add(item); err != nil {
		return err
	}
	c.notify(models.LevelSuccess, fmt.Sprintf("Created #%d", item.ID))
	return nil
}

// Copy duplicates an item at the end of its partition.
func (c *Controller) Copy(id int64) (*models.WorkItem, error) {
	src, err := c.coll.Get(id)
	if err != nil {
		return nil, err
	}
	dup := src.Clone()
	dup.ID = 0
	dup.Title = src.Title + " (copy)"
	if err := c.add(dup); err != nil {
		return nil, err
	}
	c.notify(models.LevelSuccess, "Card copied")
	return dup, nil
}

func (c *Controller) add(item *models.WorkItem) error {
	if err := validate(c.coll.Axis(), item); err != nil {
		return err
	}
	key := c.coll.Axis().Key(item)
	info, ok := c.catalog.Lookup(key)
	if !ok {
		return fmt.Errorf("create item: %w: %q", ErrUnknownPartition, key)
	}
	if c.full(info, key) {
		c.notify(models.LevelWarning, fmt.Sprintf("%s has reached its WIP limit of %d", info.Name, info.WIPLimit))
		return fmt.Errorf("create item in %q: %w", key, ErrWIPLimitExceeded)
	}
	if item.ID == 0 {
		item.ID = c.coll.NextID()
	}
	if err := c.coll.Add(item); err != nil {
		return err
	}
	c.observe(item, "", key)
	return nil
}

func validate(axis Axis, item *models.WorkItem) error {
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title: %w", ErrEmptyName)
	}
	if !item.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, item.Type)
	}
	if !axis.allows(item.Priority) {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, item.Priority)
	}
	if !models.ValidStoryPoints(item.StoryPoints) {
		return fmt.Errorf("%w: %d", ErrInvalidStoryPoints, item.StoryPoints)
	}
	return nil
}

// Update edits priority, estimate, title or assignee in place. The assignee is
// not checked against the member directory; BoardService does that.
func (c *Controller) Update(id int64, patch models.ItemPatch) (*models.WorkItem, error) {
	item, err := c.coll.Get(id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("title: %w", ErrEmptyName)
	}
	if patch.Priority != nil && !c.coll.Axis().allows(*patch.Priority) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, *patch.Priority)
	}
	if patch.StoryPoints != nil && !models.ValidStoryPoints(*patch.StoryPoints) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStoryPoints, *patch.StoryPoints)
	}

	if patch.Title != nil {
		item.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Priority != nil {
		item.Priority = *patch.Priority
		c.notify(models.LevelSuccess, "Priority set to "+string(item.Priority))
	}
	if patch.StoryPoints != nil && *patch.StoryPoints != item.StoryPoints {
		// Re-register the item so partition counters follow the new estimate.
		key := c.coll.Axis().Key(item)
		c.observe(item, key, "")
		item.StoryPoints = *patch.StoryPoints
		c.observe(item, "", key)
		c.notify(models.LevelSuccess, fmt.Sprintf("Story points set to %d", item.StoryPoints))
	}
	if patch.AssigneeID != nil {
		setAssignee(item, *patch.AssigneeID)
		c.notify(models.LevelSuccess, "Assignee updated")
	}
	return item, nil
}

func setAssignee(item *models.WorkItem, assignee int64) {
	if assignee == 0 {
		item.AssigneeID = nil
		return
	}
	item.AssigneeID = &assignee
}

// Delete removes an item and closes the gap it leaves in its partition.
func (c *Controller) Delete(id int64) (*models.WorkItem, error) {
	c.release(id)
	removed, err := c.coll.Delete(id)
	if err != nil {
		return nil, err
	}
	from := c.coll.Axis().Key(removed)
	c.coll.ReindexPartition(from)
	delete(c.selected, id)
	c.observe(removed, from, "")
	c.notify(models.LevelSuccess, "Item deleted")
	return removed, nil
}

// ClearPartition deletes every item of a partition.
func (c *Controller) ClearPartition(key string) ([]*models.WorkItem, error) {
	info, ok := c.catalog.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("clear: %w: %q", ErrUnknownPartition, key)
	}
	removed := c.coll.Partition(key)
	for _, item := range removed {
		if _, err := c.coll.Delete(item.ID); err != nil {
			return nil, err
		}
		c.release(item.ID)
		delete(c.selected, item.ID)
		c.observe(item, key, "")
	}
	c.notify(models.LevelSuccess, info.Name+" cleared")
	return removed, nil
}

// Select adds ids to the selection. Unknown ids leave the selection unchanged.
func (c *Controller) Select(ids ...int64) error {
	for _, id := range ids {
		if _, err := c.coll.Get(id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		c.selected[id] = struct{}{}
	}
	return nil
}

func (c *Controller) Deselect(ids ...int64) {
	for _, id := range ids {
		delete(c.selected, id)
	}
}

func (c *Controller) ClearSelection() {
	clear(c.selected)
}

// Selected returns the selected ids in ascending order.
func (c *Controller) Selected() []int64 {
	out := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// BulkMove transfers every selected item to one partition. Items already there
// are skipped and items beyond the WIP limit are rejected. The selection is
// cleared afterwards.
func (c *Controller) BulkMove(to string) (BulkResult, error) {
	info, ok := c.catalog.Lookup(to)
	if !ok {
		return BulkResult{}, fmt.Errorf("bulk move: %w: %q", ErrUnknownPartition, to)
	}
	var res BulkResult
	for _, id := range c.Selected() {
		item, err := c.coll.Get(id)
		if err != nil {
			res.Missing = append(res.Missing, id)
			continue
		}
		from := c.coll.Axis().Key(item)
		switch {
		case from == to:
			res.Skipped = append(res.Skipped, id)
		case c.full(info, to):
			res.Rejected = append(res.Rejected, id)
		default:
			if _, err := c.coll.MovePartition(id, to); err != nil {
				return res, err
			}
			c.release(id)
			c.observe(item, from, to)
			res.Applied = append(res.Applied, id)
			res.touch(from)
		}
	}
	if len(res.Applied) > 0 {
		c.coll.ReindexPartition(to)
		res.touch(to)
	}
	c.ClearSelection()

	c.notify(models.LevelSuccess, fmt.Sprintf("Moved %d items to %s", len(res.Applied), info.Name))
	if len(res.Rejected) > 0 {
		c.notify(models.LevelWarning, fmt.Sprintf("%d items not moved: %s has reached its WIP limit of %d",
			len(res.Rejected), info.Name, info.WIPLimit))
	}
	return res, nil
}

// BulkAssign sets the assignee of every selected item. An assignee of 0 clears it.
func (c *Controller) BulkAssign(assignee int64) BulkResult {
	var res BulkResult
	for _, id := range c.Selected() {
		item, err := c.coll.Get(id)
		if err != nil {
			res.Missing = append(res.Missing, id)
			continue
		}
		setAssignee(item, assignee)
		res.Applied = append(res.Applied, id)
	}
	c.ClearSelection()
	c.notify(models.LevelSuccess, fmt.Sprintf("Assigned %d items", len(res.Applied)))
	return res
}

// BulkDelete removes every selected item.
func (c *Controller) BulkDelete() BulkResult {
	var res BulkResult
	for _, id := range c.Selected() {
		removed, err := c.coll.Delete(id)
		if err != nil {
			res.Missing = append(res.Missing, id)
			continue
		}
		c.release(id)
		from := c.coll.Axis().Key(removed)
		c.observe(removed, from, "")
		res.Applied = append(res.Applied, id)
		res.touch(from)
	}
	for _, key := range res.Touched {
		c.coll.ReindexPartition(key)
	}
	c.ClearSelection()
	c.notify(models.LevelSuccess, fmt.Sprintf("Deleted %d items", len(res.Applied)))
	return res
}

func (c *Controller) observe(item *models.WorkItem, from, to string) {
	for _, o := range c.observers {
		o.ItemMoved(item, from, to)
	}
}

func (c *Controller) notify(level models.NotificationLevel, message string) {
	if c.notifier != nil {
		c.notifier.Notify(level, message)
	}
}

func ids(items []*models.WorkItem) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}
