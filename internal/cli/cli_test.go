package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeBackend struct {
	sweep   draws.SweepResult
	drawErr error
	drawn   []primitive.ObjectID
	reset   []primitive.ObjectID
	closed  bool
}

func (f *fakeBackend) Sweep(context.Context) (draws.SweepResult, error) { return f.sweep, nil }

func (f *fakeBackend) Draw(_ context.Context, id primitive.ObjectID) (draws.Result, error) {
	f.drawn = append(f.drawn, id)
	if f.drawErr != nil {
		return draws.Result{}, f.drawErr
	}
	return draws.Result{GroupID: id, DrawID: "d-1", AssignmentCount: 4}, nil
}

func (f *fakeBackend) Reset(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.reset = append(f.reset, id)
	return 4, nil
}

func (f *fakeBackend) Close(context.Context) error {
	f.closed = true
	return nil
}

func run(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommandWith(func(context.Context, *cli.RootOptions, *zap.Logger) (cli.Backend, error) {
		return b, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSweep_Text(t *testing.T) {
	b := &fakeBackend{sweep: draws.SweepResult{GroupsChecked: 2, DrawsExecuted: 1, DrawsFailed: 1}}
	out, err := run(t, b, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "checked=2 executed=1 failed=1 skipped=0\n", out)
	assert.True(t, b.closed)
}

func TestSweep_JSON(t *testing.T) {
	b := &fakeBackend{sweep: draws.SweepResult{GroupsChecked: 3, DrawsExecuted: 3}}
	out, err := run(t, b, "--format", "json", "sweep")
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got["groupsChecked"])
	assert.Equal(t, 3, got["drawsExecuted"])
}

func TestDraw(t *testing.T) {
	id := primitive.NewObjectID()
	b := &fakeBackend{}
	out, err := run(t, b, "draw", id.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "4 assignments")
	assert.Equal(t, []primitive.ObjectID{id}, b.drawn)
}

func TestDraw_BusinessError(t *testing.T) {
	b := &fakeBackend{drawErr: draws.ErrAlreadyDrawn}
	_, err := run(t, b, "draw", primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, draws.ErrAlreadyDrawn)
	assert.True(t, b.closed)
}

func TestDraw_BadID(t *testing.T) {
	b := &fakeBackend{}
	_, err := run(t, b, "draw", "nope")
	require.Error(t, err)
	assert.Empty(t, b.drawn)
}

func TestReset(t *testing.T) {
	id := primitive.NewObjectID()
	b := &fakeBackend{}
	out, err := run(t, b, "reset", id.Hex())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "reset "+id.Hex()))
	assert.Equal(t, []primitive.ObjectID{id}, b.reset)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, &fakeBackend{}, "--format", "yaml", "sweep")
	require.Error(t, err)
}
