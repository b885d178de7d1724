// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/giftbubble/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrNotDrawn is returned by Reset when the group has no draw to undo.
var ErrNotDrawn = errors.New("group has not been drawn")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Drawn = false
	g.DrawID = ""
	g.DrawnAt = nil
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// SetSchedule sets or (with nil) clears the automatic draw time.
func (s *Store) SetSchedule(ctx context.Context, id primitive.ObjectID, at *time.Time) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if at != nil {
		update["$set"].(bson.M)["scheduled_draw_at"] = at.UTC()
	} else {
		update["$unset"] = bson.M{"scheduled_draw_at": ""}
	}
	_, err := s.c.UpdateByID(ctx, id, update)
	return err
}

// ListDueForDraw returns undrawn groups whose scheduled draw time is at or
// before now, oldest schedule first. limit <= 0 means no limit.
func (s *Store) ListDueForDraw(ctx context.Context, now time.Time, limit int64) ([]models.Group, error) {
	filter := bson.M{
		"drawn":             false,
		"scheduled_draw_at": bson.M{"$lte": now.UTC()},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "scheduled_draw_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ClaimDraw atomically flips drawn from false to true and stamps drawID.
// It reports false, without error, when the group was already drawn (or
// does not exist); exactly one of any number of concurrent callers wins.
func (s *Store) ClaimDraw(ctx context.Context, id primitive.ObjectID, drawID string, now time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "drawn": false},
		bson.M{
			"$set": bson.M{
				"drawn":      true,
				"draw_id":    drawID,
				"drawn_at":   now.UTC(),
				"updated_at": now.UTC(),
			},
			"$unset": bson.M{"scheduled_draw_at": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ReleaseDraw undoes a ClaimDraw made with drawID, restoring the schedule
// it cleared. It is a no-op if another epoch has since been claimed.
func (s *Store) ReleaseDraw(ctx context.Context, id primitive.ObjectID, drawID string, scheduledAt *time.Time) (bool, error) {
	set := bson.M{"drawn": false, "updated_at": time.Now().UTC()}
	if scheduledAt != nil {
		set["scheduled_draw_at"] = scheduledAt.UTC()
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "draw_id": drawID},
		bson.M{
			"$set":   set,
			"$unset": bson.M{"draw_id": "", "drawn_at": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Reset clears the drawn flag so the group can be drawn again. It returns
// the draw id of the epoch that was cleared, or ErrNotDrawn.
func (s *Store) Reset(ctx context.Context, id primitive.ObjectID) (string, error) {
	var before models.Group
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "drawn": true},
		bson.M{
			"$set":   bson.M{"drawn": false, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"draw_id": "", "drawn_at": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotDrawn
	}
	if err != nil {
		return "", err
	}
	return before.DrawID, nil
}
