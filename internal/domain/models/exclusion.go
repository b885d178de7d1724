// internal/domain/models/exclusion.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExclusionRule forbids two members of a group from drawing each other,
// in either direction. UserID1/UserID2 order carries no meaning.
type ExclusionRule struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID1   primitive.ObjectID `bson:"user_id_1" json:"user_id_1"`
	UserID2   primitive.ObjectID `bson:"user_id_2" json:"user_id_2"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
