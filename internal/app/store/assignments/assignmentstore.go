// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"

	"github.com/dalemusser/giftbubble/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateAssignment means the group already holds a row for one of the
// givers or receivers being inserted.
var ErrDuplicateAssignment = errors.New("group already has an assignment for this giver or receiver")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

// InsertMany writes a draw's rows in one ordered batch. Pass a transaction
// context to make the batch all-or-nothing.
func (s *Store) InsertMany(ctx context.Context, rows []models.Assignment) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, a := range rows {
		if a.ID.IsZero() {
			a.ID = primitive.NewObjectID()
		}
		docs = append(docs, a)
	}
	_, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateAssignment
		}
		return err
	}
	return nil
}

// ListByGroup returns the group's current assignments.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.Assignment
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetForGiver returns the row in which giverID is the giver.
func (s *Store) GetForGiver(ctx context.Context, groupID, giverID primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "giver_id": giverID}).Decode(&a)
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// CountByGroup returns the number of rows for the group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}

// DeleteByGroup removes every assignment of the group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByDraw removes the rows written by one draw epoch.
func (s *Store) DeleteByDraw(ctx context.Context, groupID primitive.ObjectID, drawID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID, "draw_id": drawID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
