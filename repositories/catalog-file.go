package repositories

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mota-project/microservices/planning-service/models"
)

const dateLayout = "2006-01-02"

// CatalogFile is the reference data the service starts from: team members,
// projects, the default kanban columns and the iterations of each project.
type CatalogFile struct {
	Members    []models.Member
	Projects   []models.Project
	Columns    []models.Column
	Iterations map[string][]models.Iteration
}

type iterationEntry struct {
	ID        int64                  `yaml:"id"`
	Name      string                 `yaml:"name"`
	Status    models.IterationStatus `yaml:"status"`
	StartDate string                 `yaml:"startDate"`
	EndDate   string                 `yaml:"endDate"`
}

type catalogDocument struct {
	Members    []models.Member             `yaml:"members"`
	Projects   []models.Project            `yaml:"projects"`
	Columns    []models.Column             `yaml:"columns"`
	Iterations map[string][]iterationEntry `yaml:"iterations"`
}

func LoadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*CatalogFile, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Columns))
	for i, col := range doc.Columns {
		if col.ID == "" || seen[col.ID] {
			return nil, fmt.Errorf("catalog column %d: missing or repeated id %q", i+1, col.ID)
		}
		if col.WIPLimit < 0 {
			return nil, fmt.Errorf("catalog column %q: negative wip limit", col.ID)
		}
		seen[col.ID] = true
		if col.Order == 0 {
			doc.Columns[i].Order = i + 1
		}
	}

	catalog := &CatalogFile{
		Members:    doc.Members,
		Projects:   doc.Projects,
		Columns:    doc.Columns,
		Iterations: make(map[string][]models.Iteration, len(doc.Iterations)),
	}
	for project, entries := range doc.Iterations {
		ids := make(map[int64]bool, len(entries))
		for _, e := range entries {
			if ids[e.ID] {
				return nil, fmt.Errorf("catalog iteration %d of %s: repeated id", e.ID, project)
			}
			ids[e.ID] = true
			it, err := e.iteration(project)
			if err != nil {
				return nil, err
			}
			catalog.Iterations[project] = append(catalog.Iterations[project], it)
		}
	}
	return catalog, nil
}

func (e iterationEntry) iteration(project string) (models.Iteration, error) {
	start, err := time.Parse(dateLayout, e.StartDate)
	if err != nil {
		return models.Iteration{}, fmt.Errorf("iteration %d start date: %w", e.ID, err)
	}
	end, err := time.Parse(dateLayout, e.EndDate)
	if err != nil {
		return models.Iteration{}, fmt.Errorf("iteration %d end date: %w", e.ID, err)
	}
	if end.Before(start) {
		return models.Iteration{}, fmt.Errorf("iteration %d ends before it starts", e.ID)
	}
	return models.Iteration{
		ID:        e.ID,
		Project:   project,
		Name:      e.Name,
		Status:    e.Status,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// ColumnsFor returns a copy of the default columns bound to a project.
func (c *CatalogFile) ColumnsFor(project string) []models.Column {
	cols := make([]models.Column, len(c.Columns))
	for i, col := range c.Columns {
		col.Project = project
		cols[i] = col
	}
	return cols
}
