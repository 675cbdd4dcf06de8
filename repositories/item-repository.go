package repositories

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mota-project/microservices/planning-service/board"
	"mota-project/microservices/planning-service/logging"
	"mota-project/microservices/planning-service/models"
)

// ItemRepository persists the work items of one view.
type ItemRepository interface {
	ListItems(ctx context.Context, project string) ([]*models.WorkItem, error)
	InsertItem(ctx context.Context, item *models.WorkItem) error
	UpdateItem(ctx context.Context, project string, id int64, patch models.ItemPatch) error
	// Reorder writes the partition key and order 1..n for the listed items.
	Reorder(ctx context.Context, project, partition string, orderedIDs []int64) error
	DeleteItems(ctx context.Context, project string, ids []int64) error
}

type MongoItemRepository struct {
	items   *mongo.Collection
	axis    board.Axis
	breaker *gobreaker.CircuitBreaker
}

func NewMongoItemRepository(items *mongo.Collection, axis board.Axis, breaker *gobreaker.CircuitBreaker) *MongoItemRepository {
	return &MongoItemRepository{items: items, axis: axis, breaker: breaker}
}

// EnsureIndexes creates the unique (project, id) index items are addressed by.
func (r *MongoItemRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project", Value: 1}, {Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", r.items.Name(), err)
	}
	return nil
}

func (r *MongoItemRepository) ListItems(ctx context.Context, project string) ([]*models.WorkItem, error) {
	var items []*models.WorkItem
	err := Guard(r.breaker, func() error {
		cursor, err := r.items.Find(ctx, bson.M{"project": project}, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &items)
	})
	if err != nil {
		logging.Logger.Errorf("Event ID: ITEMS_LOAD_FAILED, Description: Failed to load items of project %s from %s: %v", project, r.items.Name(), err)
		return nil, fmt.Errorf("list items of %s: %w", project, err)
	}
	return items, nil
}

func (r *MongoItemRepository) InsertItem(ctx context.Context, item *models.WorkItem) error {
	err := Guard(r.breaker, func() error {
		_, err := r.items.InsertOne(ctx, item)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert item %d: %w", item.ID, err)
	}
	return nil
}

func (r *MongoItemRepository) UpdateItem(ctx context.Context, project string, id int64, patch models.ItemPatch) error {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.StoryPoints != nil {
		set["storyPoints"] = *patch.StoryPoints
	}
	if patch.AssigneeID != nil {
		if *patch.AssigneeID == 0 {
			set["assigneeId"] = nil
		} else {
			set["assigneeId"] = *patch.AssigneeID
		}
	}
	if len(set) == 0 {
		return nil
	}

	err := Guard(r.breaker, func() error {
		res, err := r.items.UpdateOne(ctx, bson.M{"project": project, "id": id}, bson.M{"$set": set})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return board.ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

func (r *MongoItemRepository) Reorder(ctx context.Context, project, partition string, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	key, err := r.partitionField(partition)
	if err != nil {
		return err
	}
	writes := make([]mongo.WriteModel, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"project": project, "id": id}).
			SetUpdate(bson.M{"$set": bson.D{key, {Key: "order", Value: i + 1}}}))
	}

	err = Guard(r.breaker, func() error {
		_, err := r.items.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
		return err
	})
	if err != nil {
		logging.Logger.Errorf("Event ID: REORDER_FAILED, Description: Failed to write order of partition %s in %s: %v", partition, project, err)
		return fmt.Errorf("reorder %q: %w", partition, err)
	}
	return nil
}

func (r *MongoItemRepository) partitionField(partition string) (bson.E, error) {
	if r.axis == board.AxisStatus {
		return bson.E{Key: "status", Value: partition}, nil
	}
	if partition == board.Unplanned {
		return bson.E{Key: "iterationId", Value: nil}, nil
	}
	id, err := strconv.ParseInt(partition, 10, 64)
	if err != nil {
		return bson.E{}, fmt.Errorf("%w: %q", board.ErrUnknownPartition, partition)
	}
	return bson.E{Key: "iterationId", Value: id}, nil
}

func (r *MongoItemRepository) DeleteItems(ctx context.Context, project string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := Guard(r.breaker, func() error {
		_, err := r.items.DeleteMany(ctx, bson.M{"project": project, "id": bson.M{"$in": ids}})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete items %v: %w", ids, err)
	}
	return nil
}
