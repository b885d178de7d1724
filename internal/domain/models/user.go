// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a participant. Only the fields the draw and its notifications
// read are modelled here; the account itself is owned elsewhere.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Email       string             `bson:"email" json:"email"`
	Role        string             `bson:"role" json:"role"` // admin | user
	Locale      string             `bson:"locale,omitempty" json:"locale,omitempty"`

	Preferences NotificationPreferences `bson:"notification_preferences" json:"notification_preferences"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NotificationPreferences are stored as opt-outs so that a user document
// without the sub-document gets every channel.
type NotificationPreferences struct {
	MuteInApp bool `bson:"mute_in_app" json:"mute_in_app"`
	MuteEmail bool `bson:"mute_email" json:"mute_email"`
}

// InApp reports whether in-app notifications are wanted.
func (p NotificationPreferences) InApp() bool { return !p.MuteInApp }

// Email reports whether email notifications are wanted.
func (p NotificationPreferences) Email() bool { return !p.MuteEmail }
