// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var errBadRole = errors.New(`role must be "owner" or "member"`)

var ErrDuplicateMembership = errors.New("user is already a member of this group")

// activeFilter matches memberships with no leave timestamp ($eq null also
// matches a missing field).
func activeFilter(groupID primitive.ObjectID) bson.M {
	return bson.M{"group_id": groupID, "left_at": nil}
}

// Add creates a membership.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if role != models.RoleOwner && role != models.RoleMember {
		return errBadRole
	}
	_, err := s.c.InsertOne(ctx, models.GroupMembership{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// Leave stamps the leave time; the member stops being eligible for draws.
func (s *Store) Leave(ctx context.Context, groupID, userID primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "left_at": nil},
		bson.M{"$set": bson.M{"left_at": at.UTC()}},
	)
	return err
}

// ListActive returns the group's active memberships in join order.
func (s *Store) ListActive(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "joined_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, activeFilter(groupID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.GroupMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ActiveUserIDs returns the user ids of the group's active members in join
// order.
func (s *Store) ActiveUserIDs(ctx context.Context, groupID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ms, err := s.ListActive(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// Role returns the caller's role in the group, or "" if they are not an
// active member.
func (s *Store) Role(ctx context.Context, groupID, userID primitive.ObjectID) (string, error) {
	filter := activeFilter(groupID)
	filter["user_id"] = userID
	var m models.GroupMembership
	err := s.c.FindOne(ctx, filter).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}
