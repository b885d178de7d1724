// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// GroupMembership is the authoritative join between users and groups.
// A membership with a LeftAt timestamp is kept for history but is not
// active and never takes part in a draw.
type GroupMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     string             `bson:"role" json:"role"` // "owner" | "member"
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
	// LeftAt is stored as an explicit null while active; the unique
	// active-membership index only covers null values.
	LeftAt   *time.Time         `bson:"left_at" json:"left_at,omitempty"`
}

// Active reports whether the member is still part of the group.
func (m GroupMembership) Active() bool {
	return m.LeftAt == nil
}
