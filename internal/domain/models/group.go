// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is one gift-exchange circle (a "bubble").
//
// NOTE:
//   - Members are not embedded; see the group_memberships collection.
//   - Drawn flips false→true exactly once per drawing epoch. DrawID names
//     the epoch and is cleared again by a reset.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	Drawn           bool       `bson:"drawn" json:"drawn"`
	DrawID          string     `bson:"draw_id,omitempty" json:"draw_id,omitempty"`
	DrawnAt         *time.Time `bson:"drawn_at,omitempty" json:"drawn_at,omitempty"`
	ScheduledDrawAt *time.Time `bson:"scheduled_draw_at,omitempty" json:"scheduled_draw_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
