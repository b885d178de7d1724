package txn_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/app/system/txn"
	"github.com/dalemusser/giftbubble/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// standalone is what a mongod without a replica set answers to the first
// write inside a session.
var standalone = mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("connection reset"), false},
		{"standalone code 20", standalone, true},
		{"illegal operation code 51", mongo.CommandError{Code: 51, Message: "Illegal operation"}, true},
		{"code 263", mongo.CommandError{Code: 263, Message: "operation not supported in a transaction"}, true},
		{"duplicate key", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{
			"wrapped in a draw error",
			&draws.Error{Kind: draws.KindPersistence, Message: "could not load group", Err: standalone},
			true,
		},
		{
			"draw error wrapped again",
			fmt.Errorf("execute draw: %w", &draws.Error{Kind: draws.KindPersistence, Message: "could not mark group drawn", Err: standalone}),
			true,
		},
		{
			"draw error with unrelated cause",
			&draws.Error{Kind: draws.KindPersistence, Message: "could not save assignments", Err: errors.New("disk full")},
			false,
		},
		{"business error", draws.ErrAlreadyDrawn, false},
		{"replica set message", errors.New("Transaction failed: not a replica set member"), true},
		{"session not supported message", errors.New("sessions are not supported by this deployment"), true},
		{"transaction alone", errors.New("transaction aborted"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tc.err); got != tc.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRunner_CommitsWork(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("txn_commit")

	r := txn.New(db.Client(), zap.NewNop())
	transactional, err := r.Run(ctx, func(ctx context.Context) error {
		if _, err := coll.InsertOne(ctx, bson.M{"n": 1}); err != nil {
			return &draws.Error{Kind: draws.KindPersistence, Message: "insert", Err: err}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed (transactional=%v): %v", transactional, err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	// On a standalone server the session attempt fails before writing and
	// the fallback writes once.
	if n != 1 {
		t.Errorf("expected 1 document, got %d (transactional=%v)", n, transactional)
	}
}

func TestRunner_ReturnsBodyError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("txn_abort")
	// Create the collection up front; older servers refuse to create one
	// inside a transaction.
	if _, err := coll.InsertOne(ctx, bson.M{"seed": true}); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	r := txn.New(db.Client(), nil)
	transactional, err := r.Run(ctx, func(ctx context.Context) error {
		if _, err := coll.InsertOne(ctx, bson.M{"n": 1}); err != nil {
			return err
		}
		return draws.ErrConstraintInfeasible
	})
	if !errors.Is(err, draws.ErrConstraintInfeasible) {
		t.Fatalf("expected the body's error, got %v", err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{"n": 1})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if transactional && n != 0 {
		t.Errorf("aborted transaction left %d documents", n)
	}
	if !transactional && n != 1 {
		t.Errorf("without a transaction the write should stand, got %d", n)
	}
}
