package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mota-project/microservices/planning-service/models"
)

// CatalogRepository persists board configuration: the kanban columns of a
// project and its iterations with their counters.
type CatalogRepository interface {
	ListColumns(ctx context.Context, project string) ([]models.Column, error)
	SaveColumns(ctx context.Context, project string, columns []models.Column) error
	ListIterations(ctx context.Context, project string) ([]models.Iteration, error)
	SaveIteration(ctx context.Context, iteration models.Iteration) error
}

type MongoCatalogRepository struct {
	boards     *mongo.Collection
	iterations *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
}

func NewMongoCatalogRepository(db *mongo.Database, breaker *gobreaker.CircuitBreaker) *MongoCatalogRepository {
	return &MongoCatalogRepository{
		boards:     db.Collection("boards"),
		iterations: db.Collection("iterations"),
		breaker:    breaker,
	}
}

type boardDocument struct {
	Project string          `bson:"_id"`
	Columns []models.Column `bson:"columns"`
}

func (r *MongoCatalogRepository) ListColumns(ctx context.Context, project string) ([]models.Column, error) {
	var doc boardDocument
	err := Guard(r.breaker, func() error {
		err := r.boards.FindOne(ctx, bson.M{"_id": project}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", project, err)
	}
	for i := range doc.Columns {
		doc.Columns[i].Project = project
	}
	return doc.Columns, nil
}

func (r *MongoCatalogRepository) SaveColumns(ctx context.Context, project string, columns []models.Column) error {
	err := Guard(r.breaker, func() error {
		_, err := r.boards.UpdateOne(ctx,
			bson.M{"_id": project},
			bson.M{"$set": bson.M{"columns": columns}},
			options.Update().SetUpsert(true))
		return err
	})
	if err != nil {
		return fmt.Errorf("save columns of %s: %w", project, err)
	}
	return nil
}

func (r *MongoCatalogRepository) ListIterations(ctx context.Context, project string) ([]models.Iteration, error) {
	var iterations []models.Iteration
	err := Guard(r.breaker, func() error {
		cursor, err := r.iterations.Find(ctx, bson.M{"project": project}, options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}}))
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &iterations)
	})
	if err != nil {
		return nil, fmt.Errorf("list iterations of %s: %w", project, err)
	}
	return iterations, nil
}

// EnsureIndexes creates the unique (project, id) index iterations are addressed by.
func (r *MongoCatalogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.iterations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project", Value: 1}, {Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", r.iterations.Name(), err)
	}
	return nil
}

func (r *MongoCatalogRepository) SaveIteration(ctx context.Context, iteration models.Iteration) error {
	filter := bson.M{"project": iteration.Project, "id": iteration.ID}
	err := Guard(r.breaker, func() error {
		_, err := r.iterations.ReplaceOne(ctx, filter, iteration, options.Replace().SetUpsert(true))
		return err
	})
	if err != nil {
		return fmt.Errorf("save iteration %d of %s: %w", iteration.ID, iteration.Project, err)
	}
	return nil
}
