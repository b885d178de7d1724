package notificationstore_test

import (
	"testing"
	"time"

	notificationstore "github.com/dalemusser/giftbubble/internal/app/store/notifications"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"github.com/dalemusser/giftbubble/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotificationStore_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	other := primitive.NewObjectID()
	base := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, models.Notification{
			UserID:    user,
			Kind:      models.NotificationDrawAssigned,
			Title:     "Your Secret Santa",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	store.Create(ctx, models.Notification{UserID: other, Kind: models.NotificationDrawAssigned})

	list, err := store.ListByUser(ctx, user, 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Error("expected newest first")
	}
}
