package board

import "errors"

var (
	ErrItemNotFound       = errors.New("work item not found")
	ErrDuplicateItem      = errors.New("work item already exists")
	ErrUnknownPartition   = errors.New("unknown partition")
	ErrInvalidSequence    = errors.New("sequence does not match partition")
	ErrWIPLimitExceeded   = errors.New("wip limit reached")
	ErrDragInProgress     = errors.New("a drag gesture is already in progress")
	ErrNotDragging        = errors.New("no drag gesture in progress")
	ErrInvalidStoryPoints = errors.New("story points must be on the estimation scale")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidType        = errors.New("invalid item type")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrInvalidWIPLimit    = errors.New("wip limit must not be negative")
	ErrEmptyName          = errors.New("name must not be empty")
)
