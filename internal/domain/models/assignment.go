// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment is one giver→receiver row of a committed draw.
//
// ExcludedReceiverIDs snapshots the giver's exclusions at draw time. It is
// kept for support/debugging only and is never read by the draw itself.
type Assignment struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GroupID             primitive.ObjectID   `bson:"group_id" json:"group_id"`
	DrawID              string               `bson:"draw_id" json:"draw_id"`
	GiverID             primitive.ObjectID   `bson:"giver_id" json:"giver_id"`
	ReceiverID          primitive.ObjectID   `bson:"receiver_id" json:"receiver_id"`
	ExcludedReceiverIDs []primitive.ObjectID `bson:"excluded_receiver_ids,omitempty" json:"excluded_receiver_ids,omitempty"`
	CreatedAt           time.Time            `bson:"created_at" json:"created_at"`
}
