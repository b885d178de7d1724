package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/giftbubble/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a user with default notification preferences.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		DisplayName: name,
		Email:       email,
		Role:        "user",
		Locale:      "en",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup creates an undrawn group owned by ownerID.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, ownerID primitive.ObjectID, scheduledAt *time.Time) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:              primitive.NewObjectID(),
		Name:            name,
		NameCI:          text.Fold(name),
		OwnerID:         ownerID,
		ScheduledDrawAt: scheduledAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// AddMember joins userID to groupID with the given role.
func (f *Fixtures) AddMember(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// AddExclusion stores an exclusion rule between a and b.
func (f *Fixtures) AddExclusion(ctx context.Context, groupID, a, b primitive.ObjectID) models.ExclusionRule {
	f.t.Helper()

	r := models.ExclusionRule{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID1:   a,
		UserID2:   b,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("exclusion_rules").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test exclusion: %v", err)
	}
	return r
}

// CreateGroupWithMembers creates a group owned by the first of n new users,
// all of whom are active members. It returns the group and the users in
// join order.
func (f *Fixtures) CreateGroupWithMembers(ctx context.Context, name string, n int, scheduledAt *time.Time) (models.Group, []models.User) {
	f.t.Helper()

	users := make([]models.User, n)
	for i := range users {
		users[i] = f.CreateUser(ctx, name+" member "+string(rune('A'+i)), "")
	}
	owner := primitive.NewObjectID()
	if n > 0 {
		owner = users[0].ID
	}
	g := f.CreateGroup(ctx, name, owner, scheduledAt)
	for i, u := range users {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleOwner
		}
		f.AddMember(ctx, g.ID, u.ID, role)
	}
	return g, users
}
