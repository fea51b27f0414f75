package task_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/wrussell84/stampede/internal/task"
)

func noop(ctx context.Context) error { return nil }

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		taskName string
		weight   int
		action   task.Action
		wantErr  bool
	}{
		{"valid", "create", 1, noop, false},
		{"empty name", "", 1, noop, true},
		{"zero weight", "read", 0, noop, true},
		{"negative weight", "read", -5, noop, true},
		{"nil action", "read", 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := task.NewCatalog()
			err := c.Register(tt.taskName, tt.weight, tt.action)
			if (err != nil) != tt.wantErr {
				t.Errorf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegister_RejectsDuplicateName(t *testing.T) {
	c := task.NewCatalog()
	if err := c.Register("create", 1, noop); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := c.Register("create", 2, noop); err == nil {
		t.Error("duplicate Register() did not fail")
	}
}

func TestPick_EmptyCatalog(t *testing.T) {
	c := task.NewCatalog()
	if _, err := c.Pick(rand.New(rand.NewSource(1))); err == nil {
		t.Error("Pick() on empty catalog did not fail")
	}
}

func TestPick_SingleTask(t *testing.T) {
	c := task.NewCatalog()
	if err := c.Register("only", 3, noop); err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		picked, err := c.Pick(rng)
		if err != nil {
			t.Fatalf("Pick() error = %v", err)
		}
		if picked.Name != "only" {
			t.Fatalf("Pick() = %q, want %q", picked.Name, "only")
		}
	}
}

// Selection frequency over {A:1, B:5, C:1, D:1} should converge to the
// weight ratios; B in particular to 5/8 within a 5% tolerance.
func TestPick_WeightedFrequency(t *testing.T) {
	c := task.NewCatalog()
	weights := map[string]int{"A": 1, "B": 5, "C": 1, "D": 1}
	for _, name := range []string{"A", "B", "C", "D"} {
		if err := c.Register(name, weights[name], noop); err != nil {
			t.Fatal(err)
		}
	}
	if c.TotalWeight() != 8 {
		t.Fatalf("TotalWeight() = %d, want 8", c.TotalWeight())
	}

	const samples = 20000
	rng := rand.New(rand.NewSource(99))
	counts := make(map[string]int)
	for i := 0; i < samples; i++ {
		picked, err := c.Pick(rng)
		if err != nil {
			t.Fatal(err)
		}
		counts[picked.Name]++
	}

	for name, weight := range weights {
		want := float64(weight) / 8
		got := float64(counts[name]) / samples
		if math.Abs(got-want) > 0.05 {
			t.Errorf("task %s observed frequency %.3f, want %.3f ± 0.05", name, got, want)
		}
	}
}
