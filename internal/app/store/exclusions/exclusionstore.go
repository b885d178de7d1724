// internal/app/store/exclusions/exclusionstore.go
package exclusionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/giftbubble/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var errSelfExclusion = errors.New("a member cannot be excluded from themselves")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("exclusion_rules")}
}

// ordered puts the pair in canonical order so (a,b) and (b,a) collide on
// the unique index.
func ordered(a, b primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
	if a.Hex() > b.Hex() {
		return b, a
	}
	return a, b
}

// Add stores an exclusion between a and b. Adding an existing pair, in
// either order, succeeds without creating a second row.
func (s *Store) Add(ctx context.Context, groupID, a, b primitive.ObjectID) error {
	if a == b {
		return errSelfExclusion
	}
	a, b = ordered(a, b)
	_, err := s.c.InsertOne(ctx, models.ExclusionRule{
		GroupID:   groupID,
		UserID1:   a,
		UserID2:   b,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && !wafflemongo.IsDup(err) {
		return err
	}
	return nil
}

// Remove deletes the exclusion between a and b, whichever order it was
// stored in.
func (s *Store) Remove(ctx context.Context, groupID, a, b primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{
		"group_id": groupID,
		"$or": []bson.M{
			{"user_id_1": a, "user_id_2": b},
			{"user_id_1": b, "user_id_2": a},
		},
	})
	return err
}

// ListByGroup returns every exclusion rule of the group.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.ExclusionRule, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rules []models.ExclusionRule
	if err := cur.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
