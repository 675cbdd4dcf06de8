package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"mota-project/microservices/planning-service/models"
	"mota-project/microservices/planning-service/repositories"
)

var errStoreDown = errors.New("store down")

type fakeItems struct {
	mu       sync.Mutex
	items    []*models.WorkItem
	fail     bool
	reorders map[string][]int64
	updates  []int64
	patches  map[int64]models.ItemPatch
	deleted  []int64
	inserted []int64
}

func newFakeItems(items ...*models.WorkItem) *fakeItems {
	return &fakeItems{items: items, reorders: make(map[string][]int64), patches: make(map[int64]models.ItemPatch)}
}

func (f *fakeItems) ListItems(_ context.Context, project string) ([]*models.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.WorkItem
	for _, item := range f.items {
		if item.Project == project {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func (f *fakeItems) InsertItem(_ context.Context, item *models.WorkItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.inserted = append(f.inserted, item.ID)
	return nil
}

func (f *fakeItems) UpdateItem(_ context.Context, _ string, id int64, patch models.ItemPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.updates = append(f.updates, id)
	f.patches[id] = patch
	return nil
}

func (f *fakeItems) Reorder(_ context.Context, _ string, partition string, orderedIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.reorders[partition] = slices.Clone(orderedIDs)
	return nil
}

func (f *fakeItems) DeleteItems(_ context.Context, _ string, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeItems) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type iterationKey struct {
	project string
	id      int64
}

type fakeCatalog struct {
	mu         sync.Mutex
	columns    map[string][]models.Column
	iterations map[iterationKey]models.Iteration
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{columns: make(map[string][]models.Column), iterations: make(map[iterationKey]models.Iteration)}
}

func (f *fakeCatalog) ListColumns(_ context.Context, project string) ([]models.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.columns[project]), nil
}

func (f *fakeCatalog) SaveColumns(_ context.Context, project string, columns []models.Column) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.columns[project] = slices.Clone(columns)
	return nil
}

func (f *fakeCatalog) ListIterations(_ context.Context, project string) ([]models.Iteration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Iteration
	for _, it := range f.iterations {
		if it.Project == project {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b models.Iteration) int { return int(a.ID - b.ID) })
	return out, nil
}

func (f *fakeCatalog) SaveIteration(_ context.Context, it models.Iteration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.iterations[iterationKey{it.Project, it.ID}] = it
	return nil
}

type recordingSink struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (r *recordingSink) Send(_ context.Context, note models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

func (r *recordingSink) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Message
	}
	return out
}

func testCatalogFile() *repositories.CatalogFile {
	return &repositories.CatalogFile{
		Members:  []models.Member{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Marko"}},
		Projects: []models.Project{{ID: "frontend", Name: "Frontend"}},
		Columns: []models.Column{
			{ID: "pending", Name: "Pending", Order: 1},
			{ID: "processing", Name: "Processing", WIPLimit: 1, Order: 2},
			{ID: "done", Name: "Done", Order: 3},
		},
		Iterations: map[string][]models.Iteration{
			"frontend": {
				{ID: 12, Project: "frontend", Name: "Sprint 12", Status: models.IterationActive},
				{ID: 13, Project: "frontend", Name: "Sprint 13", Status: models.IterationUpcoming},
			},
		},
	}
}
