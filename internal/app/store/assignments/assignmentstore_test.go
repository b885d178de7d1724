package assignmentstore_test

import (
	"testing"
	"time"

	assignmentstore "github.com/dalemusser/giftbubble/internal/app/store/assignments"
	"github.com/dalemusser/giftbubble/internal/app/system/indexes"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"github.com/dalemusser/giftbubble/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func rows(groupID primitive.ObjectID, drawID string, ids ...primitive.ObjectID) []models.Assignment {
	out := make([]models.Assignment, 0, len(ids))
	for i := range ids {
		out = append(out, models.Assignment{
			GroupID:    groupID,
			DrawID:     drawID,
			GiverID:    ids[i],
			ReceiverID: ids[(i+1)%len(ids)],
			CreatedAt:  time.Now().UTC(),
		})
	}
	return out
}

func TestAssignmentStore_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := primitive.NewObjectID()
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	if err := store.InsertMany(ctx, rows(g, "d1", a, b, c)); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}

	all, err := store.ListByGroup(ctx, g)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}

	mine, err := store.GetForGiver(ctx, g, b)
	if err != nil {
		t.Fatalf("GetForGiver failed: %v", err)
	}
	if mine.ReceiverID != c {
		t.Errorf("expected b to give to c")
	}

	n, _ := store.CountByGroup(ctx, g)
	if n != 3 {
		t.Errorf("expected count 3, got %d", n)
	}
}

func TestAssignmentStore_DuplicateGiverRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := assignmentstore.New(db)

	g := primitive.NewObjectID()
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	if err := store.InsertMany(ctx, rows(g, "d1", a, b, c)); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if err := store.InsertMany(ctx, rows(g, "d2", a, b, c)); err != assignmentstore.ErrDuplicateAssignment {
		t.Errorf("expected ErrDuplicateAssignment, got %v", err)
	}
}

func TestAssignmentStore_DeleteByDraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := primitive.NewObjectID()
	store.InsertMany(ctx, rows(g, "d1", primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()))
	store.InsertMany(ctx, rows(g, "d2", primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()))

	n, err := store.DeleteByDraw(ctx, g, "d1")
	if err != nil {
		t.Fatalf("DeleteByDraw failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted, got %d", n)
	}
	left, _ := store.CountByGroup(ctx, g)
	if left != 3 {
		t.Errorf("expected the other epoch to survive, got %d rows", left)
	}

	n, _ = store.DeleteByGroup(ctx, g)
	if n != 3 {
		t.Errorf("expected 3 deleted by group, got %d", n)
	}
}

func TestAssignmentStore_InsertEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.InsertMany(ctx, nil); err != nil {
		t.Errorf("expected nil error for empty batch, got %v", err)
	}
}
