package groupstore_test

import (
	"sync"
	"testing"
	"time"

	groupstore "github.com/dalemusser/giftbubble/internal/app/store/groups"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"github.com/dalemusser/giftbubble/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestGroupStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, err := store.Create(ctx, models.Group{Name: "Office Party", OwnerID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Office Party" || got.NameCI != "office party" {
		t.Errorf("unexpected names: %q / %q", got.Name, got.NameCI)
	}
	if got.Drawn {
		t.Error("new group should not be drawn")
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestGroupStore_ClaimDraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	at := time.Now().Add(-time.Hour)
	g, err := store.Create(ctx, models.Group{Name: "G", ScheduledDrawAt: &at})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := store.ClaimDraw(ctx, g.ID, "draw-1", time.Now())
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.ClaimDraw(ctx, g.ID, "draw-2", time.Now())
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Error("second claim should lose")
	}

	got, _ := store.GetByID(ctx, g.ID)
	if !got.Drawn || got.DrawID != "draw-1" || got.DrawnAt == nil {
		t.Errorf("unexpected group after claim: %+v", got)
	}
	if got.ScheduledDrawAt != nil {
		t.Error("claim should clear the schedule")
	}
}

func TestGroupStore_ClaimDraw_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, err := store.Create(ctx, models.Group{Name: "Race"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.ClaimDraw(ctx, g.ID, primitive.NewObjectID().Hex(), time.Now())
			if err != nil {
				t.Errorf("claim %d: %v", i, err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestGroupStore_ReleaseDraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	at := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	g, _ := store.Create(ctx, models.Group{Name: "G", ScheduledDrawAt: &at})
	if ok, err := store.ClaimDraw(ctx, g.ID, "draw-1", time.Now()); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	// A release for a different epoch is ignored.
	ok, err := store.ReleaseDraw(ctx, g.ID, "other", &at)
	if err != nil {
		t.Fatalf("ReleaseDraw failed: %v", err)
	}
	if ok {
		t.Error("release with wrong draw id should not match")
	}

	ok, err = store.ReleaseDraw(ctx, g.ID, "draw-1", &at)
	if err != nil || !ok {
		t.Fatalf("ReleaseDraw: ok=%v err=%v", ok, err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if got.Drawn || got.DrawID != "" {
		t.Errorf("group should be undrawn after release: %+v", got)
	}
	if got.ScheduledDrawAt == nil || !got.ScheduledDrawAt.Equal(at) {
		t.Errorf("schedule not restored: %v", got.ScheduledDrawAt)
	}
}

func TestGroupStore_Reset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, _ := store.Create(ctx, models.Group{Name: "G"})
	if _, err := store.Reset(ctx, g.ID); err != groupstore.ErrNotDrawn {
		t.Errorf("expected ErrNotDrawn, got %v", err)
	}

	store.ClaimDraw(ctx, g.ID, "draw-1", time.Now())
	drawID, err := store.Reset(ctx, g.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if drawID != "draw-1" {
		t.Errorf("expected cleared draw id draw-1, got %q", drawID)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if got.Drawn {
		t.Error("group should be undrawn after reset")
	}
}

func TestGroupStore_ListDueForDraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	past := now.Add(-2 * time.Hour)
	older := now.Add(-3 * time.Hour)
	future := now.Add(time.Hour)

	due, _ := store.Create(ctx, models.Group{Name: "due", ScheduledDrawAt: &past})
	dueOlder, _ := store.Create(ctx, models.Group{Name: "older", ScheduledDrawAt: &older})
	store.Create(ctx, models.Group{Name: "future", ScheduledDrawAt: &future})
	store.Create(ctx, models.Group{Name: "unscheduled"})
	drawn, _ := store.Create(ctx, models.Group{Name: "drawn", ScheduledDrawAt: &past})
	store.ClaimDraw(ctx, drawn.ID, "x", now)

	groups, err := store.ListDueForDraw(ctx, now, 0)
	if err != nil {
		t.Fatalf("ListDueForDraw failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 due groups, got %d", len(groups))
	}
	if groups[0].ID != dueOlder.ID || groups[1].ID != due.ID {
		t.Errorf("expected oldest schedule first")
	}

	groups, _ = store.ListDueForDraw(ctx, now, 1)
	if len(groups) != 1 {
		t.Errorf("expected limit to apply, got %d", len(groups))
	}
}

func TestGroupStore_SetSchedule(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, _ := store.Create(ctx, models.Group{Name: "G"})
	at := time.Now().Add(24 * time.Hour)
	if err := store.SetSchedule(ctx, g.ID, &at); err != nil {
		t.Fatalf("SetSchedule failed: %v", err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if got.ScheduledDrawAt == nil {
		t.Fatal("expected schedule to be set")
	}

	if err := store.SetSchedule(ctx, g.ID, nil); err != nil {
		t.Fatalf("SetSchedule(nil) failed: %v", err)
	}
	got, _ = store.GetByID(ctx, g.ID)
	if got.ScheduledDrawAt != nil {
		t.Error("expected schedule to be cleared")
	}
}
