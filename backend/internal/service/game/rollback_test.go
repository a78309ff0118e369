package game

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestRollbackRunsStepsInReverseOrder(t *testing.T) {
	rb := newRollbackList(zap.NewNop().Sugar())

	var order []string
	for _, label := range []string{"game assets", "thumbnail", "db record"} {
		rb.Add(label, func(ctx context.Context) {
			order = append(order, label)
		})
	}
	rb.Add("skipped", nil)

	if rb.Len() != 3 {
		t.Fatalf("expected 3 pending steps, got %d", rb.Len())
	}

	rb.Run(context.Background())

	want := []string{"db record", "thumbnail", "game assets"}
	if len(order) != len(want) {
		t.Fatalf("expected %d executed steps, got %d", len(want), len(order))
	}
	for i, label := range want {
		if order[i] != label {
			t.Fatalf("step %d: expected %q, got %q", i, label, order[i])
		}
	}
}

func TestRollbackRunClearsSteps(t *testing.T) {
	rb := newRollbackList(zap.NewNop().Sugar())

	runs := 0
	rb.Add("game assets", func(ctx context.Context) { runs++ })

	rb.Run(context.Background())
	rb.Run(context.Background())

	if runs != 1 {
		t.Fatalf("compensation must execute exactly once, ran %d times", runs)
	}
	if rb.Len() != 0 {
		t.Fatalf("expected empty list after run, got %d steps", rb.Len())
	}
}
