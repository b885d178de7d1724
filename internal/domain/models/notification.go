// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds.
const (
	NotificationDrawAssigned = "draw_assigned"
)

// Notification is an in-app message shown to a single user.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	GroupID   *primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Kind      string              `bson:"kind" json:"kind"`
	Title     string              `bson:"title" json:"title"`
	Body      string              `bson:"body" json:"body"`
	Link      string              `bson:"link,omitempty" json:"link,omitempty"`
	ReadAt    *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
