// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"context"

	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleLookup returns a user's active role in a group, or "" when they are
// not an active member. *membershipstore.Store implements it.
type RoleLookup interface {
	Role(ctx context.Context, groupID, userID primitive.ObjectID) (string, error)
}

// CanManageDraw reports whether u may run or reset the group's draw:
//   - admins always can
//   - the group's owners can
//
// Returns an error if the membership check fails, so callers can tell
// "not authorized" (false, nil) from a database error.
func CanManageDraw(ctx context.Context, roles RoleLookup, u *auth.SessionUser, groupID primitive.ObjectID) (bool, error) {
	if u == nil {
		return false, nil
	}
	if u.IsAdmin() {
		return true, nil
	}
	role, err := roleOf(ctx, roles, u, groupID)
	if err != nil {
		return false, err
	}
	return role == models.RoleOwner, nil
}

// IsActiveMember reports whether u currently belongs to the group. Only
// members may look up their own assignment.
func IsActiveMember(ctx context.Context, roles RoleLookup, u *auth.SessionUser, groupID primitive.ObjectID) (bool, error) {
	if u == nil {
		return false, nil
	}
	role, err := roleOf(ctx, roles, u, groupID)
	if err != nil {
		return false, err
	}
	return role != "", nil
}

func roleOf(ctx context.Context, roles RoleLookup, u *auth.SessionUser, groupID primitive.ObjectID) (string, error) {
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return "", nil
	}
	return roles.Role(ctx, groupID, uid)
}
